// Package auth issues access tokens, verifies credentials and resolves the
// identity of authenticated callers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/image-tiers/database/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"
)

const (
	// MinSecretLength JWT 密钥最短长度
	MinSecretLength = 32

	tokenTypeAccess = "access"
)

// ErrInvalidToken 令牌无效或已过期
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenClaims JWT 令牌声明
type TokenClaims struct {
	Username string `mapstructure:"username"`
	UserID   uint   `mapstructure:"user_id"`
	Type     string `mapstructure:"type"`
	Exp      int64  `mapstructure:"exp"`
	Iat      int64  `mapstructure:"iat"`
}

// JWTService 访问令牌服务
type JWTService struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

// NewJWTService 创建 JWT 服务
func NewJWTService(secret string, expiresIn time.Duration) (*JWTService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d characters long, got %d", MinSecretLength, len(secret))
	}
	if expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	return &JWTService{secret: []byte(secret), expiresIn: expiresIn, now: time.Now}, nil
}

// ExpiresIn 访问令牌有效期
func (s *JWTService) ExpiresIn() time.Duration {
	return s.expiresIn
}

// GenerateAccessToken 生成访问令牌
func (s *JWTService) GenerateAccessToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiry := now.Add(s.expiresIn)
	claims := jwt.MapClaims{
		"username": user.Username,
		"user_id":  user.ID,
		"type":     tokenTypeAccess,
		"exp":      expiry.Unix(),
		"iat":      now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, expiry, nil
}

// ParseToken 校验签名与有效期，返回访问令牌声明
func (s *JWTService) ParseToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	var claims TokenClaims
	if err := mapstructure.Decode(map[string]interface{}(mapClaims), &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Type != tokenTypeAccess || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

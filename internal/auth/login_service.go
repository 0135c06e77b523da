package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/utils/crypto"
)

// ErrInvalidCredentials 用户名或密码错误，或用户已停用
var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginResult 登录结果
type LoginResult struct {
	User              *models.User
	AccessToken       string
	AccessTokenExpiry time.Time
}

// LoginService 登录服务
type LoginService struct {
	accountsRepo *accounts.Repository
	jwtService   *JWTService
}

// NewLoginService 创建新的登录服务
func NewLoginService(accountsRepo *accounts.Repository, jwtService *JWTService) *LoginService {
	return &LoginService{
		accountsRepo: accountsRepo,
		jwtService:   jwtService,
	}
}

// ValidateCredentials 验证用户凭据，Basic 认证也使用此方法
func (s *LoginService) ValidateCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.accountsRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := crypto.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("password comparison failed: %w", err)
	}
	if !ok || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login 执行登录操作
func (s *LoginService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.ValidateCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, expiry, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, AccessToken: token, AccessTokenExpiry: expiry}, nil
}

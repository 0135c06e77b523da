package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/internal/access"
	"github.com/anoixa/image-tiers/internal/auth"
	"github.com/anoixa/image-tiers/utils"
	"github.com/anoixa/image-tiers/utils/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextCallerKey   = "caller"
	AuthTypeKey        = "auth_type"

	AuthTypeJWT   = "jwt"
	AuthTypeBasic = "basic"
)

// TokenParser 解析 Bearer 令牌
type TokenParser interface {
	ParseToken(token string) (*auth.TokenClaims, error)
}

// CredentialChecker 校验 Basic 认证的用户名密码
type CredentialChecker interface {
	ValidateCredentials(ctx context.Context, username, password string) (*models.User, error)
}

// IdentityResolver 由用户 ID 得到当前身份与等级
type IdentityResolver interface {
	Resolve(ctx context.Context, userID uint) (access.Caller, error)
}

// Authenticator 支持 Bearer JWT 与 HTTP Basic 两种方式
type Authenticator struct {
	tokens      TokenParser
	credentials CredentialChecker
	identities  IdentityResolver
}

func NewAuthenticator(tokens TokenParser, credentials CredentialChecker, identities IdentityResolver) *Authenticator {
	return &Authenticator{tokens: tokens, credentials: credentials, identities: identities}
}

// Middleware 认证失败返回 401，成功后将 access.Caller 写入上下文
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Header("WWW-Authenticate", `Basic realm="image-tiers"`)
			common.RespondErrorAbort(c, http.StatusUnauthorized, "No Authorization request header")
			return
		}

		scheme, _, found := strings.Cut(authHeader, " ")
		if !found {
			common.RespondErrorAbort(c, http.StatusBadRequest, "Authorization field format error")
			return
		}

		var (
			userID   uint
			authType string
			err      error
		)
		switch {
		case strings.EqualFold(scheme, "Bearer"):
			userID, err = a.bearer(authHeader[len(scheme)+1:])
			authType = AuthTypeJWT
		case strings.EqualFold(scheme, "Basic"):
			userID, err = a.basic(c)
			authType = AuthTypeBasic
		default:
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Unsupported authentication scheme")
			return
		}
		if err != nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, err.Error())
			return
		}

		caller, err := a.identities.Resolve(c.Request.Context(), userID)
		if err != nil {
			logger.L.Info("authenticated user rejected", zap.Uint("user_id", userID), zap.Error(err))
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Account is not available")
			return
		}

		c.Set(ContextUserIDKey, caller.UserID)
		c.Set(ContextUsernameKey, caller.Username)
		c.Set(ContextCallerKey, caller)
		c.Set(AuthTypeKey, authType)

		c.Next()
	}
}

func (a *Authenticator) bearer(token string) (uint, error) {
	claims, err := a.tokens.ParseToken(strings.TrimSpace(token))
	if err != nil {
		return 0, errors.New("invalid or expired token")
	}
	return claims.UserID, nil
}

func (a *Authenticator) basic(c *gin.Context) (uint, error) {
	username, password, ok := c.Request.BasicAuth()
	if !ok {
		return 0, errors.New("malformed basic credentials")
	}
	user, err := a.credentials.ValidateCredentials(c.Request.Context(), username, password)
	if err != nil {
		utils.LogIfDevf("basic auth failed for %s", utils.SanitizeLogUsername(username))
		return 0, errors.New("invalid username or password")
	}
	return user.ID, nil
}

// CallerFrom 读取认证中间件写入的身份
func CallerFrom(c *gin.Context) (access.Caller, bool) {
	v, ok := c.Get(ContextCallerKey)
	if !ok {
		return access.Caller{}, false
	}
	caller, ok := v.(access.Caller)
	return caller, ok
}

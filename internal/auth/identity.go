package auth

import (
	"context"
	"errors"
	"time"

	"github.com/anoixa/image-tiers/cache"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/internal/access"
	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
)

// ErrInactiveUser 用户已停用
var ErrInactiveUser = errors.New("user is inactive")

// IdentityResolver 由用户 ID 解析调用方身份与等级，结果短暂缓存
// 等级变更时由 tier 服务清除对应缓存
type IdentityResolver struct {
	accounts *accounts.Repository
	cache    cache.Provider
	ttl      time.Duration
}

// NewIdentityResolver cacheProvider 为 nil 时每次查库
func NewIdentityResolver(accountsRepo *accounts.Repository, cacheProvider cache.Provider, ttl time.Duration) *IdentityResolver {
	return &IdentityResolver{accounts: accountsRepo, cache: cacheProvider, ttl: ttl}
}

// Resolve 获取调用方身份
func (r *IdentityResolver) Resolve(ctx context.Context, userID uint) (access.Caller, error) {
	key := cache.IdentityKey(userID)
	if r.cache != nil {
		var caller access.Caller
		err := r.cache.Get(ctx, key, &caller)
		if err == nil {
			return caller, nil
		}
		if !cache.IsCacheMiss(err) {
			logger.L.Warn("identity cache read failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}

	user, err := r.accounts.GetUserByID(ctx, userID)
	if err != nil {
		return access.Caller{}, err
	}
	if !user.IsActive {
		return access.Caller{}, ErrInactiveUser
	}

	caller := access.FromUser(user)
	if r.cache != nil && r.ttl > 0 {
		if err := r.cache.Set(ctx, key, caller, r.ttl); err != nil {
			logger.L.Warn("identity cache write failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return caller, nil
}

// Forget 清除缓存的身份
func (r *IdentityResolver) Forget(ctx context.Context, userID uint) {
	if r.cache != nil {
		_ = r.cache.Delete(ctx, cache.IdentityKey(userID))
	}
}

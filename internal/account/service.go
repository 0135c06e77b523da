// Package account manages users and their tier assignment.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anoixa/image-tiers/cache"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/database/repo/tiers"
	"github.com/anoixa/image-tiers/utils"
	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
)

// UserRemover 删除用户及其全部图片文件
type UserRemover interface {
	DeleteUser(ctx context.Context, userID uint) error
}

// CreateInput 新建用户参数
type CreateInput struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	TierID    uint   `json:"tier_id" binding:"required"`
	Superuser bool   `json:"is_superuser"`
}

// Service 用户管理服务
type Service struct {
	accounts *accounts.Repository
	tiers    *tiers.Repository
	remover  UserRemover
	cache    cache.Provider
}

// NewService 创建用户管理服务，cacheProvider 可为 nil
func NewService(accountsRepo *accounts.Repository, tiersRepo *tiers.Repository, remover UserRemover, cacheProvider cache.Provider) *Service {
	return &Service{accounts: accountsRepo, tiers: tiersRepo, remover: remover, cache: cacheProvider}
}

// Create 新建用户，等级必须存在
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if _, err := s.tiers.GetTierByID(ctx, in.TierID); err != nil {
		return nil, err
	}

	user, err := s.accounts.CreateUser(ctx, in.Username, in.Password, in.TierID, in.Superuser)
	if err != nil {
		return nil, err
	}
	logger.L.Info("user created",
		zap.String("username", utils.SanitizeLogUsername(user.Username)),
		zap.Uint("tier_id", in.TierID),
		zap.Bool("superuser", in.Superuser))
	return s.accounts.GetUserByID(ctx, user.ID)
}

// Get 获取用户
func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.accounts.GetUserByID(ctx, id)
}

// List 列出用户
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	return s.accounts.ListUsers(ctx)
}

// SetTier 变更用户等级，已有图片不受影响
func (s *Service) SetTier(ctx context.Context, userID, tierID uint) (*models.User, error) {
	if _, err := s.tiers.GetTierByID(ctx, tierID); err != nil {
		return nil, err
	}
	if err := s.accounts.UpdateTier(ctx, userID, tierID); err != nil {
		return nil, err
	}
	s.forget(ctx, userID)
	return s.accounts.GetUserByID(ctx, userID)
}

// Delete 删除用户及其图片
func (s *Service) Delete(ctx context.Context, userID uint) error {
	if err := s.remover.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.forget(ctx, userID)
	return nil
}

// EnsureAdmin 不存在默认管理员时以 tierName 等级创建，返回生成的密码
func (s *Service) EnsureAdmin(ctx context.Context, tierName string) (string, error) {
	tier, err := s.tiers.GetTierByName(ctx, tierName)
	if err != nil {
		if errors.Is(err, tiers.ErrTierNotFound) {
			return "", fmt.Errorf("admin tier %q does not exist: %w", tierName, err)
		}
		return "", err
	}
	return s.accounts.CreateDefaultAdminUser(ctx, tier.ID)
}

func (s *Service) forget(ctx context.Context, userID uint) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.IdentityKey(userID))
	}
}

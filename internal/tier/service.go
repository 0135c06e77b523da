// Package tier manages tier policies and the thumbnail resolution catalog.
package tier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anoixa/image-tiers/cache"
	"github.com/anoixa/image-tiers/database"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/database/repo/tiers"
	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrTierInUse 仍有用户引用该等级
	ErrTierInUse = errors.New("tier is assigned to users")
	// ErrResolutionExists 相同尺寸的分辨率已存在
	ErrResolutionExists = errors.New("resolution already exists")
	// ErrNameRequired 等级名称为空
	ErrNameRequired = errors.New("tier name is required")
)

// Input 创建或更新等级的参数
type Input struct {
	Name            string `json:"name" binding:"required"`
	KeepOriginal    bool   `json:"keep_original"`
	CanGenerateLink bool   `json:"can_generate_link"`
	ResolutionIDs   []uint `json:"resolution_ids"`
}

// Service 等级策略服务
type Service struct {
	db       database.Provider
	cache    cache.Provider
	bounds   models.ResolutionBounds
	tiers    *tiers.Repository
	accounts *accounts.Repository
}

// NewService 创建等级服务，cacheProvider 可为 nil
func NewService(db database.Provider, cacheProvider cache.Provider, bounds models.ResolutionBounds) *Service {
	return &Service{
		db:       db,
		cache:    cacheProvider,
		bounds:   bounds,
		tiers:    tiers.NewRepository(db.DB()),
		accounts: accounts.NewRepository(db.DB()),
	}
}

// Bounds 分辨率尺寸限制
func (s *Service) Bounds() models.ResolutionBounds {
	return s.bounds
}

// CreateOrUpdate 按名称新建或更新等级，并替换其分辨率集合
// 违反策略约束时不写入任何数据；已有图片和缩略图不受影响
func (s *Service) CreateOrUpdate(ctx context.Context, in Input) (*models.TierPolicy, error) {
	return s.save(ctx, 0, in)
}

// Update 按 ID 更新等级，允许改名
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.TierPolicy, error) {
	return s.save(ctx, id, in)
}

func (s *Service) save(ctx context.Context, id uint, in Input) (*models.TierPolicy, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	candidate := &models.TierPolicy{
		Name:            in.Name,
		KeepOriginal:    in.KeepOriginal,
		CanGenerateLink: in.CanGenerateLink,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	var saved *models.TierPolicy
	err := s.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		repo := s.tiers.WithTx(tx)

		resolutions, err := repo.ResolutionsByIDs(ctx, in.ResolutionIDs)
		if err != nil {
			return err
		}

		var tier *models.TierPolicy
		if id != 0 {
			tier, err = repo.GetTierByID(ctx, id)
		} else {
			tier, err = repo.GetTierByName(ctx, in.Name)
			if errors.Is(err, tiers.ErrTierNotFound) {
				tier, err = &models.TierPolicy{}, nil
			}
		}
		if err != nil {
			return err
		}

		tier.Name = candidate.Name
		tier.KeepOriginal = candidate.KeepOriginal
		tier.CanGenerateLink = candidate.CanGenerateLink
		if err := repo.SaveTier(ctx, tier, resolutions); err != nil {
			return err
		}
		saved = tier
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTier(ctx, saved.ID)
	logger.L.Info("tier saved",
		zap.String("tier", saved.Name),
		zap.Bool("keep_original", saved.KeepOriginal),
		zap.Bool("can_generate_link", saved.CanGenerateLink),
		zap.Int("resolutions", len(saved.Resolutions)))
	return saved, nil
}

// Get 获取等级
func (s *Service) Get(ctx context.Context, id uint) (*models.TierPolicy, error) {
	return s.tiers.GetTierByID(ctx, id)
}

// GetByName 按名称获取等级
func (s *Service) GetByName(ctx context.Context, name string) (*models.TierPolicy, error) {
	return s.tiers.GetTierByName(ctx, name)
}

// List 列出全部等级
func (s *Service) List(ctx context.Context) ([]*models.TierPolicy, error) {
	return s.tiers.ListTiers(ctx)
}

// Delete 删除未被任何用户引用的等级
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		n, err := s.accounts.WithTx(tx).CountByTier(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d user(s)", ErrTierInUse, n)
		}
		return s.tiers.WithTx(tx).DeleteTier(ctx, id)
	})
}

// AddResolution 向目录添加分辨率
func (s *Service) AddResolution(ctx context.Context, width, height int) (*models.Resolution, error) {
	res := &models.Resolution{Width: width, Height: height}
	if err := res.Validate(s.bounds); err != nil {
		return nil, err
	}

	_, err := s.tiers.FindResolution(ctx, width, height)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrResolutionExists, res)
	case !errors.Is(err, tiers.ErrResolutionNotFound):
		return nil, err
	}

	if err := s.tiers.CreateResolution(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to create resolution %s: %w", res, err)
	}
	return res, nil
}

// EnsureResolution 返回已存在的分辨率，不存在时创建
func (s *Service) EnsureResolution(ctx context.Context, width, height int) (*models.Resolution, error) {
	res, err := s.tiers.FindResolution(ctx, width, height)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, tiers.ErrResolutionNotFound) {
		return nil, err
	}
	return s.AddResolution(ctx, width, height)
}

// ListResolutions 列出分辨率目录
func (s *Service) ListResolutions(ctx context.Context) ([]*models.Resolution, error) {
	return s.tiers.ListResolutions(ctx)
}

// DeleteResolution 从目录删除分辨率，已生成的缩略图保留
// 只使持有该分辨率的等级下用户的身份缓存失效
func (s *Service) DeleteResolution(ctx context.Context, id uint) error {
	var affected []uint
	err := s.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		repo := s.tiers.WithTx(tx)
		all, err := repo.ListTiers(ctx)
		if err != nil {
			return err
		}
		affected = tiersHolding(all, id)
		return repo.DeleteResolution(ctx, id)
	})
	if err != nil {
		return err
	}

	for _, tierID := range affected {
		s.invalidateTier(ctx, tierID)
	}
	return nil
}

func tiersHolding(all []*models.TierPolicy, resolutionID uint) []uint {
	var ids []uint
	for _, t := range all {
		for _, r := range t.Resolutions {
			if r.ID == resolutionID {
				ids = append(ids, t.ID)
				break
			}
		}
	}
	return ids
}

// invalidateTier 使该等级下用户的身份缓存失效
func (s *Service) invalidateTier(ctx context.Context, tierID uint) {
	if s.cache == nil {
		return
	}
	ids, err := s.accounts.IDsByTier(ctx, tierID)
	if err != nil {
		logger.L.Warn("failed to list tier users for cache invalidation", zap.Uint("tier_id", tierID), zap.Error(err))
		return
	}
	s.invalidateUsers(ctx, ids)
}

func (s *Service) invalidateUsers(ctx context.Context, ids []uint) {
	if s.cache == nil {
		return
	}
	for _, id := range ids {
		if err := s.cache.Delete(ctx, cache.IdentityKey(id)); err != nil {
			logger.L.Warn("failed to invalidate identity cache", zap.Uint("user_id", id), zap.Error(err))
		}
	}
}

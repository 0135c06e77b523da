package tiers

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/base"
	"gorm.io/gorm"
)

var (
	// ErrTierNotFound 等级不存在
	ErrTierNotFound = errors.New("tier not found")
	// ErrResolutionNotFound 分辨率不存在
	ErrResolutionNotFound = errors.New("resolution not found")
)

// Repository 等级策略与分辨率目录仓库
type Repository struct {
	base.Repository[models.TierPolicy]
}

// NewRepository 创建等级仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Repository: base.NewRepository[models.TierPolicy](db)}
}

// WithTx 返回绑定到事务的仓库
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// GetTierByID 获取等级及其分辨率
func (r *Repository) GetTierByID(ctx context.Context, id uint) (*models.TierPolicy, error) {
	tier, err := r.FindByID(ctx, id, "Resolutions")
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTierNotFound
	}
	return tier, err
}

// GetTierByName 按名称获取等级
func (r *Repository) GetTierByName(ctx context.Context, name string) (*models.TierPolicy, error) {
	var tier models.TierPolicy
	err := r.DB(ctx).Preload("Resolutions").Where("name = ?", name).First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	return &tier, nil
}

// ListTiers 列出所有等级
func (r *Repository) ListTiers(ctx context.Context) ([]*models.TierPolicy, error) {
	var tiers []*models.TierPolicy
	err := r.DB(ctx).Preload("Resolutions").Order("id ASC").Find(&tiers).Error
	return tiers, err
}

// SaveTier 写入等级标量字段，分辨率集合替换为 resolutions
func (r *Repository) SaveTier(ctx context.Context, tier *models.TierPolicy, resolutions []*models.Resolution) error {
	if err := r.DB(ctx).Omit("Resolutions").Save(tier).Error; err != nil {
		return fmt.Errorf("failed to save tier %q: %w", tier.Name, err)
	}
	if err := r.DB(ctx).Model(tier).Association("Resolutions").Replace(resolutions); err != nil {
		return fmt.Errorf("failed to replace resolutions of tier %q: %w", tier.Name, err)
	}
	tier.Resolutions = resolutions
	return nil
}

// DeleteTier 删除等级及其分辨率关联
func (r *Repository) DeleteTier(ctx context.Context, id uint) error {
	tier := &models.TierPolicy{ID: id}
	if err := r.DB(ctx).Model(tier).Association("Resolutions").Clear(); err != nil {
		return fmt.Errorf("failed to clear tier resolutions: %w", err)
	}
	err := r.DeleteByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTierNotFound
	}
	return err
}

// CreateResolution 新增分辨率
func (r *Repository) CreateResolution(ctx context.Context, res *models.Resolution) error {
	return r.DB(ctx).Create(res).Error
}

// FindResolution 按尺寸查找分辨率
func (r *Repository) FindResolution(ctx context.Context, width, height int) (*models.Resolution, error) {
	var res models.Resolution
	err := r.DB(ctx).Where("width = ? AND height = ?", width, height).First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResolutionNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ResolutionsByIDs 按 ID 批量获取，任一缺失即报错
func (r *Repository) ResolutionsByIDs(ctx context.Context, ids []uint) ([]*models.Resolution, error) {
	if len(ids) == 0 {
		return []*models.Resolution{}, nil
	}
	uniq := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		uniq[id] = struct{}{}
	}

	var res []*models.Resolution
	if err := r.DB(ctx).Where("id IN ?", ids).Order("width ASC, height ASC").Find(&res).Error; err != nil {
		return nil, err
	}
	if len(res) != len(uniq) {
		return nil, ErrResolutionNotFound
	}
	return res, nil
}

// ListResolutions 列出分辨率目录
func (r *Repository) ListResolutions(ctx context.Context) ([]*models.Resolution, error) {
	var res []*models.Resolution
	err := r.DB(ctx).Order("width ASC, height ASC").Find(&res).Error
	return res, err
}

// DeleteResolution 删除分辨率，同时移出所有等级；已生成的缩略图不受影响
func (r *Repository) DeleteResolution(ctx context.Context, id uint) error {
	if err := r.DB(ctx).Exec("DELETE FROM tier_resolutions WHERE resolution_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to detach resolution: %w", err)
	}
	res := r.DB(ctx).Delete(&models.Resolution{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrResolutionNotFound
	}
	return nil
}

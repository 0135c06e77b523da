package images

import (
	"context"
	"errors"

	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/base"
	"gorm.io/gorm"
)

// ErrImageNotFound 图片不存在
var ErrImageNotFound = errors.New("image not found")

// Repository 图片仓库
type Repository struct {
	base.Repository[models.Image]
}

// NewRepository 创建新的图片仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Repository: base.NewRepository[models.Image](db)}
}

// WithTx 返回绑定到事务的仓库
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// CreateImage 写入图片行，不包含缩略图
func (r *Repository) CreateImage(ctx context.Context, image *models.Image) error {
	return r.DB(ctx).Omit("Thumbnails", "User").Create(image).Error
}

// CreateThumbnails 批量写入缩略图
func (r *Repository) CreateThumbnails(ctx context.Context, thumbs []*models.Thumbnail) error {
	if len(thumbs) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&thumbs).Error
}

// GetImageByID 获取图片及缩略图
func (r *Repository) GetImageByID(ctx context.Context, id uint) (*models.Image, error) {
	img, err := r.FindByID(ctx, id, "Thumbnails")
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImageNotFound
	}
	return img, err
}

// GetUserImage 获取属于指定用户的图片
func (r *Repository) GetUserImage(ctx context.Context, userID, id uint) (*models.Image, error) {
	var img models.Image
	err := r.DB(ctx).Preload("Thumbnails").Where("id = ? AND user_id = ?", id, userID).First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &img, nil
}

// ListUserImages 分页列出用户图片，page 从 1 开始
func (r *Repository) ListUserImages(ctx context.Context, userID uint, page, limit int) ([]*models.Image, int64, error) {
	var (
		items []*models.Image
		total int64
	)

	q := r.DB(ctx).Model(&models.Image{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	err := q.Preload("Thumbnails").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

// ListUserImageIDs 用户全部图片 ID
func (r *Repository) ListUserImageIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB(ctx).Model(&models.Image{}).Where("user_id = ?", userID).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// DeleteImage 删除缩略图行与图片行
func (r *Repository) DeleteImage(ctx context.Context, id uint) error {
	if err := r.DB(ctx).Where("image_id = ?", id).Delete(&models.Thumbnail{}).Error; err != nil {
		return err
	}
	err := r.DeleteByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrImageNotFound
	}
	return err
}

// CountThumbnails 统计图片的缩略图数量
func (r *Repository) CountThumbnails(ctx context.Context, imageID uint) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Thumbnail{}).Where("image_id = ?", imageID).Count(&n).Error
	return n, err
}

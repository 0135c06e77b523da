package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/base"
	"github.com/anoixa/image-tiers/utils"
	"github.com/anoixa/image-tiers/utils/crypto"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken 用户名已被占用
	ErrUsernameTaken = errors.New("username already exists")
)

// DefaultAdminUsername 启动时自动创建的管理员
const DefaultAdminUsername = "admin"

// Repository 账户仓库
type Repository struct {
	base.Repository[models.User]
}

// NewRepository 创建新的账户仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Repository: base.NewRepository[models.User](db)}
}

// WithTx 返回绑定到事务的仓库
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// CreateUser 创建用户，密码为明文，内部完成哈希
func (r *Repository) CreateUser(ctx context.Context, username, password string, tierID uint, superuser bool) (*models.User, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	taken, err := r.Count(ctx, "username = ?", username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		IsSuperuser:  superuser,
		IsActive:     true,
		TierID:       tierID,
	}
	if err := r.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// CreateDefaultAdminUser 不存在 admin 时创建，返回随机生成的明文密码
// 已存在时返回空字符串
func (r *Repository) CreateDefaultAdminUser(ctx context.Context, tierID uint) (string, error) {
	count, err := r.Count(ctx, "username = ?", DefaultAdminUsername)
	if err != nil {
		return "", fmt.Errorf("failed to check admin user existence: %w", err)
	}
	if count > 0 {
		return "", nil
	}

	password, err := utils.GenerateRandomToken(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate random password: %w", err)
	}
	if _, err := r.CreateUser(ctx, DefaultAdminUsername, password, tierID, true); err != nil {
		return "", fmt.Errorf("failed to create default admin user: %w", err)
	}
	return password, nil
}

// GetUserByID 获取用户及其等级策略与分辨率
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := r.FindByID(ctx, id, "Tier.Resolutions")
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// GetUserByUsername 通过用户名获取用户
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).Preload("Tier.Resolutions").Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers 列出所有用户
func (r *Repository) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.DB(ctx).Preload("Tier").Order("id ASC").Find(&users).Error
	return users, err
}

// UpdateTier 变更用户等级
func (r *Repository) UpdateTier(ctx context.Context, userID, tierID uint) error {
	res := r.DB(ctx).Model(&models.User{}).Where("id = ?", userID).Update("tier_id", tierID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountByTier 统计引用某等级的用户数
func (r *Repository) CountByTier(ctx context.Context, tierID uint) (int64, error) {
	return r.Count(ctx, "tier_id = ?", tierID)
}

// IDsByTier 引用某等级的用户 ID
func (r *Repository) IDsByTier(ctx context.Context, tierID uint) ([]uint, error) {
	var ids []uint
	err := r.DB(ctx).Model(&models.User{}).Where("tier_id = ?", tierID).Pluck("id", &ids).Error
	return ids, err
}

// DeleteUser 删除用户行，图片需由调用方先行清理
func (r *Repository) DeleteUser(ctx context.Context, id uint) error {
	err := r.DeleteByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Package base 提供通用的 Repository 基类
package base

import (
	"context"

	"gorm.io/gorm"
)

// Repository 通用仓库基类
type Repository[T any] struct {
	db *gorm.DB
}

// NewRepository 创建新的通用仓库
func NewRepository[T any](db *gorm.DB) Repository[T] {
	return Repository[T]{db: db}
}

// DB 返回绑定上下文的连接
func (r Repository[T]) DB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Raw 返回底层连接
func (r Repository[T]) Raw() *gorm.DB {
	return r.db
}

// Create 创建记录
func (r Repository[T]) Create(ctx context.Context, entity *T) error {
	return r.DB(ctx).Create(entity).Error
}

// FindByID 通过 ID 获取记录，不存在时返回 gorm.ErrRecordNotFound
func (r Repository[T]) FindByID(ctx context.Context, id uint, preloads ...string) (*T, error) {
	var entity T
	q := r.DB(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.First(&entity, id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// DeleteByID 删除记录，不存在时返回 gorm.ErrRecordNotFound
func (r Repository[T]) DeleteByID(ctx context.Context, id uint) error {
	var entity T
	res := r.DB(ctx).Delete(&entity, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count 统计满足条件的记录数
func (r Repository[T]) Count(ctx context.Context, query interface{}, args ...interface{}) (int64, error) {
	var (
		entity T
		count  int64
	)
	q := r.DB(ctx).Model(&entity)
	if query != nil {
		q = q.Where(query, args...)
	}
	err := q.Count(&count).Error
	return count, err
}

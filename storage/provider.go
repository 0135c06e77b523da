package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound 文件不存在
var ErrNotFound = errors.New("storage: file not found")

// Provider 存储提供者接口
type Provider interface {
	// SaveWithContext 保存文件，已存在时覆盖
	SaveWithContext(ctx context.Context, identifier string, file io.Reader) error

	// GetWithContext 获取文件，不存在时返回 ErrNotFound
	GetWithContext(ctx context.Context, identifier string) (io.ReadSeeker, error)

	// DeleteWithContext 删除文件，不存在时返回 ErrNotFound
	DeleteWithContext(ctx context.Context, identifier string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, identifier string) (bool, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

// DeleteIfExists 删除文件，忽略不存在
func DeleteIfExists(ctx context.Context, p Provider, identifier string) error {
	err := p.DeleteWithContext(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

package database

import (
	"fmt"

	"github.com/anoixa/image-tiers/config"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
)

// Factory 数据库工厂，持有唯一的提供者
type Factory struct {
	provider Provider
}

// NewFactory 创建新的数据库工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	provider, err := NewGormProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}
	logger.L.Info("database provider initialized", zap.String("provider", provider.Name()))

	return &Factory{provider: provider}, nil
}

// NewFactoryWithProvider 使用现成的提供者
func NewFactoryWithProvider(p Provider) *Factory {
	return &Factory{provider: p}
}

// GetProvider 获取数据库提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// AutoMigrate 自动迁移数据库结构
func (f *Factory) AutoMigrate() error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}

	logger.L.Info("running database auto migration")
	if err := f.provider.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}
	return nil
}

// Close 关闭数据库连接
func (f *Factory) Close() error {
	if f.provider != nil {
		return f.provider.Close()
	}
	return nil
}

package storage

import (
	"fmt"

	"github.com/anoixa/image-tiers/config"
	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
)

// NewProvider 按 storage_type 创建存储提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch cfg.StorageType {
	case "", "local":
		p, err = NewLocalStorage(cfg.StorageLocalPath)
	case "minio":
		p, err = NewMinioStorage(MinioConfig{
			Endpoint:        cfg.StorageMinioEndpoint,
			AccessKeyID:     cfg.StorageMinioAccessKey,
			SecretAccessKey: cfg.StorageMinioSecretKey,
			BucketName:      cfg.StorageMinioBucket,
			UseSSL:          cfg.StorageMinioUseSSL,
		})
	case "webdav":
		p, err = NewWebDAVStorage(WebDAVConfig{
			URL:      cfg.StorageWebDAVURL,
			Username: cfg.StorageWebDAVUsername,
			Password: cfg.StorageWebDAVPassword,
			RootPath: cfg.StorageWebDAVRootPath,
			Timeout:  cfg.StorageWebDAVTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.StorageType, err)
	}

	logger.L.Info("storage provider initialized", zap.String("provider", p.Name()))
	return p, nil
}

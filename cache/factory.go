package cache

import (
	"fmt"

	"github.com/anoixa/image-tiers/config"
	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
)

// NewProvider 按 cache_type 创建缓存提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch cfg.CacheType {
	case "", "memory", "ristretto":
		p, err = NewRistretto(DefaultRistrettoConfig)
	case "redis":
		p, err = NewRedis(RedisConfig{
			Addr:     cfg.CacheRedisAddr,
			Password: cfg.CacheRedisPassword,
			DB:       cfg.CacheRedisDB,
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
	if err != nil {
		return nil, err
	}

	logger.L.Info("cache provider initialized", zap.String("provider", p.Name()))
	return p, nil
}

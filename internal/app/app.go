package app

import (
	"context"
	"fmt"

	"github.com/anoixa/image-tiers/api/core"
	"github.com/anoixa/image-tiers/cache"
	"github.com/anoixa/image-tiers/config"
	"github.com/anoixa/image-tiers/database"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/database/repo/tiers"
	"github.com/anoixa/image-tiers/internal/account"
	"github.com/anoixa/image-tiers/internal/auth"
	"github.com/anoixa/image-tiers/internal/image"
	"github.com/anoixa/image-tiers/internal/image/vips"
	"github.com/anoixa/image-tiers/internal/link"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/anoixa/image-tiers/internal/worker"
	"github.com/anoixa/image-tiers/storage"
	"github.com/anoixa/image-tiers/utils"
	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
)

// generatedSecretLength 未配置密钥时随机生成的长度（字节）
const generatedSecretLength = 32

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	cache           cache.Provider
	storage         storage.Provider
	pool            *worker.Pool
	thumbnailer     image.Thumbnailer

	AccountsRepo *accounts.Repository
	TiersRepo    *tiers.Repository

	JWT        *auth.JWTService
	Login      *auth.LoginService
	Identities *auth.IdentityResolver
	Codec      *link.Codec
	Pipeline   *image.Pipeline
	Images     *image.Service
	Tiers      *tier.Service
	Accounts   *account.Service
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// Init 初始化所有服务
func (c *Container) Init() error {
	if err := c.InitDatabase(); err != nil {
		return err
	}
	if err := c.InitServices(); err != nil {
		return err
	}
	return nil
}

// InitDatabase 连接数据库并执行迁移
func (c *Container) InitDatabase() error {
	utils.LogIfDev("Initializing DI container...")

	factory, err := database.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}
	c.databaseFactory = factory

	if err := factory.AutoMigrate(); err != nil {
		return err
	}

	db := factory.GetProvider().DB()
	c.AccountsRepo = accounts.NewRepository(db)
	c.TiersRepo = tiers.NewRepository(db)
	utils.LogIfDev("Repositories initialized")
	return nil
}

// InitServices 初始化缓存、存储与业务服务
func (c *Container) InitServices() error {
	cfg := c.config
	provider := c.databaseFactory.GetProvider()

	cacheProvider, err := cache.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.cache = cacheProvider

	store, err := storage.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = store

	if err := c.ensureSecrets(); err != nil {
		return err
	}

	keys, err := link.NewSecretKeyProvider(cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("failed to derive link key: %w", err)
	}
	codec, err := link.NewCodec(keys)
	if err != nil {
		return fmt.Errorf("failed to initialize link codec: %w", err)
	}
	c.Codec = codec

	jwtService, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT: %w", err)
	}
	c.JWT = jwtService

	c.pool = worker.NewPool(cfg.GetWorkerCount(), cfg.WorkerQueueSize)
	c.pool.Start()

	c.thumbnailer = newThumbnailer(cfg)

	c.Login = auth.NewLoginService(c.AccountsRepo, jwtService)
	c.Identities = auth.NewIdentityResolver(c.AccountsRepo, cacheProvider, cfg.CacheIdentityTTL)
	c.Images = image.NewService(provider, store, c.pool, codec, cacheProvider)
	c.Pipeline = image.NewPipeline(provider, store, c.pool, c.thumbnailer)
	c.Tiers = tier.NewService(provider, cacheProvider, models.ResolutionBounds{
		MinWidth:  cfg.ImageMinWidth,
		MaxWidth:  cfg.ImageMaxWidth,
		MinHeight: cfg.ImageMinHeight,
		MaxHeight: cfg.ImageMaxHeight,
	})
	c.Accounts = account.NewService(c.AccountsRepo, c.TiersRepo, c.Images, cacheProvider)

	logger.L.Info("services initialized",
		zap.String("cache", cacheProvider.Name()),
		zap.String("thumbnailer", c.thumbnailer.Name()),
		zap.Int("workers", cfg.GetWorkerCount()))
	return nil
}

// ensureSecrets 未配置的密钥在本次运行内随机生成
func (c *Container) ensureSecrets() error {
	if c.config.JWTSecret == "" {
		secret, err := utils.GenerateRandomToken(generatedSecretLength)
		if err != nil {
			return err
		}
		c.config.JWTSecret = secret
		logger.L.Warn("jwt_secret is not set, generated a random one; tokens will not survive a restart")
	}
	if c.config.SecretKey == "" {
		secret, err := utils.GenerateRandomToken(generatedSecretLength)
		if err != nil {
			return err
		}
		c.config.SecretKey = secret
		logger.L.Warn("secret_key is not set, generated a random one; temporary links will not survive a restart")
	}
	return nil
}

func newThumbnailer(cfg *config.Config) image.Thumbnailer {
	if cfg.ThumbnailBackend == "vips" {
		return vips.New(cfg.ThumbnailQuality)
	}
	return image.NewImagingThumbnailer(cfg.ThumbnailQuality)
}

// Bootstrap 写入默认等级并确保管理员存在，首次创建时返回明文密码
func (c *Container) Bootstrap(ctx context.Context) (string, error) {
	if err := c.Tiers.EnsureDefaults(ctx); err != nil {
		return "", fmt.Errorf("failed to seed default tiers: %w", err)
	}
	return c.Accounts.EnsureAdmin(ctx, tier.Enterprise)
}

// ServerDependencies 组装 HTTP 层依赖
func (c *Container) ServerDependencies() *core.ServerDependencies {
	return &core.ServerDependencies{
		Config:     c.config,
		DB:         c.databaseFactory.GetProvider(),
		Cache:      c.cache,
		Storage:    c.storage,
		JWT:        c.JWT,
		Login:      c.Login,
		Identities: c.Identities,
		Pipeline:   c.Pipeline,
		Images:     c.Images,
		Tiers:      c.Tiers,
		Accounts:   c.Accounts,
	}
}

// GetDatabaseFactory 获取数据库工厂
func (c *Container) GetDatabaseFactory() *database.Factory {
	return c.databaseFactory
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// Close 关闭所有服务
func (c *Container) Close() error {
	utils.LogIfDev("Closing DI container...")

	if c.pool != nil {
		c.pool.Stop()
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			logger.L.Warn("error closing cache", zap.Error(err))
		}
	}
	if c.config.ThumbnailBackend == "vips" && c.thumbnailer != nil {
		vips.Shutdown()
	}
	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil {
			logger.L.Warn("error closing database factory", zap.Error(err))
		}
	}

	utils.LogIfDev("DI container closed")
	return nil
}

package core

import (
	"net/http"
	"time"

	"github.com/anoixa/image-tiers/api/middleware"
	"github.com/anoixa/image-tiers/cache"
	"github.com/anoixa/image-tiers/config"
	"github.com/anoixa/image-tiers/database"
	"github.com/anoixa/image-tiers/internal/account"
	"github.com/anoixa/image-tiers/internal/auth"
	"github.com/anoixa/image-tiers/internal/image"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/anoixa/image-tiers/storage"
	"github.com/anoixa/image-tiers/utils/logger"
	"github.com/anoixa/image-tiers/utils/validator"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	// globalConcurrency 全局并发上限，避免内存过载
	globalConcurrency = 256
	// uploadQueueTimeout 上传等待空位的最长时间
	uploadQueueTimeout = 30 * time.Second
	// multipartOverhead multipart 边界与表单字段的额外开销
	multipartOverhead = 1 << 20
)

// ServerDependencies 服务器依赖项
type ServerDependencies struct {
	Config     *config.Config
	DB         database.Provider
	Cache      cache.Provider
	Storage    storage.Provider
	JWT        *auth.JWTService
	Login      *auth.LoginService
	Identities *auth.IdentityResolver
	Pipeline   *image.Pipeline
	Images     *image.Service
	Tiers      *tier.Service
	Accounts   *account.Service
}

// UploadLimits 上传校验限制
func (d *ServerDependencies) UploadLimits() validator.Limits {
	return validator.Limits{
		MaxBytes:  d.Config.UploadMaxBytes(),
		MaxWidth:  d.Config.ImageMaxWidth,
		MaxHeight: d.Config.ImageMaxHeight,
	}
}

// 启动gin
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	if !config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.IsDevelopment() {
		router.Use(gin.LoggerWithWriter(logger.StdLog().Writer()))
	}
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if origins := cfg.CORSOriginList(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowOrigins = []string{cfg.BaseURL()}
	}
	router.Use(cors.New(corsConfig))

	_ = router.SetTrustedProxies(nil)

	// 限制上传文件大小
	router.MaxMultipartMemory = cfg.UploadMaxBytes() + multipartOverhead
	router.Use(func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.UploadMaxBytes()+multipartOverhead)
		}
		c.Next()
	})

	concurrencyLimiter := middleware.NewConcurrencyLimiter(globalConcurrency)
	router.Use(concurrencyLimiter.Middleware())
	router.Use(middleware.Metrics())

	// 速率限制
	l := limiters{
		auth:   middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime),
		api:    middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime),
		upload: middleware.NewConcurrencyLimiter(cfg.MaxConcurrentUploads),
	}
	cleanup := func() {
		l.auth.StopCleanup()
		l.api.StopCleanup()
	}

	registerRoutes(router, deps, l)
	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := deps.Config
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
		ErrorLog:     logger.StdLog(),
	}

	return srv, clean
}

package core

import (
	"context"
	"net/http"
	"time"

	"github.com/anoixa/image-tiers/cache"
	"github.com/anoixa/image-tiers/config"
	"github.com/anoixa/image-tiers/database"
	"github.com/anoixa/image-tiers/storage"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

const healthCheckTimeout = 3 * time.Second

// healthProbeKey 用于探测缓存读写
const healthProbeKey = "image-tiers:health"

// HealthHandler 汇总数据库、缓存与存储状态
type HealthHandler struct {
	db      database.Provider
	cache   cache.Provider
	storage storage.Provider
}

func NewHealthHandler(db database.Provider, cacheProvider cache.Provider, store storage.Provider) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheProvider, storage: store}
}

// Handle 任一依赖不可用时返回 503
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{
		"database": checkDatabaseHealth(ctx, h.db),
		"cache":    checkCacheHealth(ctx, h.cache),
		"storage":  checkStorageHealth(ctx, h.storage),
	}

	status := "ok"
	httpStatus := http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":  status,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
		"version": config.Version,
		"checks":  checks,
	})
}

func checkDatabaseHealth(ctx context.Context, provider database.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Ping(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(ctx context.Context, provider cache.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Set(ctx, healthProbeKey, startTime.Unix(), time.Minute); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, provider storage.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

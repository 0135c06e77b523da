package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anoixa/image-tiers/config"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DBType:           "sqlite",
		DBFilePath:       filepath.Join(dir, "app.db"),
		CacheType:        "memory",
		CacheIdentityTTL: time.Minute,
		StorageType:      "local",
		StorageLocalPath: filepath.Join(dir, "media"),
		JWTExpiresIn:     time.Hour,
		ImageMinWidth:    1,
		ImageMinHeight:   1,
		ImageMaxWidth:    4000,
		ImageMaxHeight:   4000,
		UploadMaxSizeMB:  5,
		ThumbnailBackend: "imaging",
		WorkerCount:      2,
		WorkerQueueSize:  8,
	}
}

func TestContainerBootstrap(t *testing.T) {
	cfg := testConfig(t)
	c := NewContainer(cfg)
	require.NoError(t, c.Init())
	t.Cleanup(func() { _ = c.Close() })

	// 未配置的密钥随机生成
	assert.GreaterOrEqual(t, len(cfg.JWTSecret), 32)
	assert.NotEmpty(t, cfg.SecretKey)
	assert.NotEqual(t, cfg.JWTSecret, cfg.SecretKey)

	ctx := context.Background()
	password, err := c.Bootstrap(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, password)

	// 第二次启动不再创建管理员
	password, err = c.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Empty(t, password)

	policies, err := c.Tiers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, len(tier.DefaultDefinitions))

	result, err := c.Login.Login(ctx, "admin", "wrong")
	assert.Error(t, err)
	assert.Nil(t, result)

	deps := c.ServerDependencies()
	assert.Same(t, cfg, deps.Config)
	assert.NotNil(t, deps.DB)
	assert.NotNil(t, deps.Pipeline)
	assert.Equal(t, "imaging", c.thumbnailer.Name())
}

func TestContainerKeepsConfiguredSecrets(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.SecretKey = "link-secret"

	c := NewContainer(cfg)
	require.NoError(t, c.Init())
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.JWTSecret)
	assert.Equal(t, "link-secret", cfg.SecretKey)
}

func TestContainerRejectsUnknownDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBType = "oracle"
	assert.Error(t, NewContainer(cfg).Init())
}

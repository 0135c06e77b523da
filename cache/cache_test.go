package cache

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/image-tiers/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestRistrettoSetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, err := NewRistretto(DefaultRistrettoConfig)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", entry{ID: 1, Name: "basic"}, time.Minute))

	var got entry
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, entry{ID: 1, Name: "basic"}, got)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	err = c.Get(ctx, "k", &got)
	assert.True(t, IsCacheMiss(err))
}

func TestRistrettoMiss(t *testing.T) {
	c, err := NewRistretto(DefaultRistrettoConfig)
	require.NoError(t, err)
	defer c.Close()

	var got entry
	assert.ErrorIs(t, c.Get(context.Background(), "absent", &got), ErrCacheMiss)
}

func TestRedisUnreachable(t *testing.T) {
	_, err := NewRedis(RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(&config.Config{CacheType: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "ristretto", p.Name())
	_ = p.Close()

	_, err = NewProvider(&config.Config{CacheType: "memcached"})
	assert.Error(t, err)
}

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "image-tiers:identity:12", IdentityKey(12))
}

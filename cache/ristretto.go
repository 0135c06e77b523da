package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoConfig 内存缓存配置
type RistrettoConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultRistrettoConfig 约 64MB 上限
var DefaultRistrettoConfig = RistrettoConfig{
	NumCounters: 1e5,
	MaxCost:     64 << 20,
	BufferItems: 64,
}

// Ristretto 进程内缓存，值以 JSON 字节保存，避免调用方共享指针
type Ristretto struct {
	client *ristretto.Cache
}

// NewRistretto 创建内存缓存
func NewRistretto(cfg RistrettoConfig) (*Ristretto, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &Ristretto{client: c}, nil
}

func (r *Ristretto) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if r.client.SetWithTTL(key, data, int64(len(data)), expiration) {
		// 等待写缓冲落地，保证随后的 Get 可见
		r.client.Wait()
	}
	return nil
}

func (r *Ristretto) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := r.client.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cache value: %w", err)
	}
	return nil
}

func (r *Ristretto) Delete(_ context.Context, key string) error {
	r.client.Del(key)
	return nil
}

func (r *Ristretto) Exists(_ context.Context, key string) (bool, error) {
	_, ok := r.client.Get(key)
	return ok, nil
}

func (r *Ristretto) Close() error {
	r.client.Close()
	return nil
}

func (r *Ristretto) Name() string {
	return "ristretto"
}

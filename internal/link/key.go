package link

import (
	"crypto/sha256"
	"errors"
)

// KeyProvider 提供 AES-256 密钥，启动时加载一次，运行期不轮换
type KeyProvider interface {
	Key() []byte
}

// ErrEmptySecret 未配置密钥
var ErrEmptySecret = errors.New("link secret must not be empty")

// SecretKeyProvider 由应用密钥直接派生：SHA-256(secret)
// 没有盐，也没有按用途分离，持有 secret 的组件都能伪造令牌
type SecretKeyProvider struct {
	key []byte
}

// NewSecretKeyProvider 派生密钥
func NewSecretKeyProvider(secret string) (*SecretKeyProvider, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	sum := sha256.Sum256([]byte(secret))
	return &SecretKeyProvider{key: sum[:]}, nil
}

// Key 返回密钥副本
func (p *SecretKeyProvider) Key() []byte {
	out := make([]byte, len(p.key))
	copy(out, p.key)
	return out
}

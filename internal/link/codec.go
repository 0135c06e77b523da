// Package link issues and validates the encrypted, expiring tokens used by
// unauthenticated temporary links.
package link

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zlib"
)

const (
	// MinTTL 最短有效期（秒）
	MinTTL = 300
	// MaxTTL 最长有效期（秒）
	MaxTTL = 30000

	tokenVersion byte = 1
	// 解压上限，防止压缩炸弹
	maxPayloadSize = 4 << 10
)

var (
	// ErrTTLOutOfRange ttl 不在 [MinTTL, MaxTTL]
	ErrTTLOutOfRange = fmt.Errorf("ttl must be between %d and %d seconds", MinTTL, MaxTTL)
	// ErrTokenInvalid 令牌无法解码、解密或反序列化
	ErrTokenInvalid = errors.New("invalid link token")
	// ErrTokenExpired 令牌有效但已过期
	ErrTokenExpired = errors.New("link token expired")
)

// Payload 令牌明文
type Payload struct {
	Expiry  int64 `json:"exp"`
	Subject uint  `json:"sub"`
}

// ExpiresAt 过期时间
func (p Payload) ExpiresAt() time.Time {
	return time.Unix(p.Expiry, 0)
}

// ValidateTTL 校验调用方传入的有效期
func ValidateTTL(seconds int) error {
	if seconds < MinTTL || seconds > MaxTTL {
		return ErrTTLOutOfRange
	}
	return nil
}

// Codec 令牌编解码器
// 格式: base64url(version || nonce || AES-GCM(zlib(json(payload))))
type Codec struct {
	aead cipher.AEAD
	now  func() time.Time
}

// Option Codec 选项
type Option func(*Codec)

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec 使用 KeyProvider 的密钥构建 AES-GCM
func NewCodec(keys KeyProvider, opts ...Option) (*Codec, error) {
	block, err := aes.NewCipher(keys.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	c := &Codec{aead: aead, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue 生成绑定 subjectID、有效期 ttlSeconds 的令牌
// 每次调用使用新的随机 nonce，相同输入也会得到不同令牌
func (c *Codec) Issue(subjectID uint, ttlSeconds int) (string, time.Time, error) {
	if err := ValidateTTL(ttlSeconds); err != nil {
		return "", time.Time{}, err
	}

	expiry := c.now().Add(time.Duration(ttlSeconds) * time.Second).Truncate(time.Second)
	plain, err := json.Marshal(Payload{Expiry: expiry.Unix(), Subject: subjectID})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to encode payload: %w", err)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(plain); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to compress payload: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	header := append([]byte{tokenVersion}, nonce...)
	// 版本字节作为附加数据参与认证
	sealed := c.aead.Seal(header, nonce, compressed.Bytes(), header[:1])

	return base64.RawURLEncoding.EncodeToString(sealed), expiry, nil
}

// Validate 解析令牌
// 无法解析时返回 ErrTokenInvalid；已过期返回 ErrTokenExpired 与解析出的 Payload
func (c *Codec) Validate(token string) (Payload, error) {
	var p Payload

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return p, ErrTokenInvalid
	}
	ns := c.aead.NonceSize()
	if len(raw) < 1+ns+c.aead.Overhead() || raw[0] != tokenVersion {
		return p, ErrTokenInvalid
	}

	compressed, err := c.aead.Open(nil, raw[1:1+ns], raw[1+ns:], raw[:1])
	if err != nil {
		return p, ErrTokenInvalid
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return p, ErrTokenInvalid
	}
	defer zr.Close()

	plain, err := io.ReadAll(io.LimitReader(zr, maxPayloadSize))
	if err != nil {
		return p, ErrTokenInvalid
	}
	if err := json.Unmarshal(plain, &p); err != nil || p.Expiry == 0 {
		return Payload{}, ErrTokenInvalid
	}

	if c.now().Unix() > p.Expiry {
		return p, ErrTokenExpired
	}
	return p, nil
}

package link

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newCodec(t *testing.T, secret string, clock *fakeClock) *Codec {
	t.Helper()
	keys, err := NewSecretKeyProvider(secret)
	require.NoError(t, err)
	c, err := NewCodec(keys, WithClock(clock.Now))
	require.NoError(t, err)
	return c
}

func TestIssueValidateRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, "django-insecure-secret", clock)

	token, expiry, err := c.Issue(42, 600)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(600*time.Second), expiry)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	p, err := c.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), p.Subject)
	assert.Equal(t, expiry.Unix(), p.ExpiresAt().Unix())
}

func TestIssueIsNonDeterministic(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := newCodec(t, "secret", clock)

	a, _, err := c.Issue(1, 300)
	require.NoError(t, err)
	b, _, err := c.Issue(1, 300)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = c.Validate(a)
	assert.NoError(t, err)
	_, err = c.Validate(b)
	assert.NoError(t, err)
}

func TestTTLBoundaries(t *testing.T) {
	c := newCodec(t, "secret", &fakeClock{t: time.Now()})

	tests := []struct {
		ttl     int
		wantErr bool
	}{
		{299, true},
		{300, false},
		{30000, false},
		{30001, true},
		{0, true},
		{-5, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantErr, ValidateTTL(tt.ttl) != nil, "ttl=%d", tt.ttl)

		_, _, err := c.Issue(1, tt.ttl)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrTTLOutOfRange, "ttl=%d", tt.ttl)
		} else {
			assert.NoError(t, err, "ttl=%d", tt.ttl)
		}
	}
}

func TestExpiredIsDistinctFromInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newCodec(t, "secret", clock)

	token, _, err := c.Issue(9, 300)
	require.NoError(t, err)

	clock.Advance(300 * time.Second)
	_, err = c.Validate(token)
	assert.NoError(t, err, "valid up to and including the expiry second")

	clock.Advance(time.Second)
	p, err := c.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
	assert.Equal(t, uint(9), p.Subject)
}

func TestTamperedTokensAreInvalid(t *testing.T) {
	c := newCodec(t, "secret", &fakeClock{t: time.Now()})
	token, _, err := c.Issue(5, 1000)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	flipped := append([]byte(nil), raw...)
	flipped[len(flipped)-1] ^= 0x01
	badVersion := append([]byte(nil), raw...)
	badVersion[0] = 9

	cases := map[string]string{
		"empty":       "",
		"garbage":     "not-a-token",
		"not base64":  "!!!!",
		"truncated":   token[:len(token)/2],
		"bit flip":    base64.RawURLEncoding.EncodeToString(flipped),
		"bad version": base64.RawURLEncoding.EncodeToString(badVersion),
		"appended":    token + "AA",
		"padded std":  base64.StdEncoding.EncodeToString(raw) + strings.Repeat("=", 2),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Validate(tok)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestWrongKeyIsInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	token, _, err := newCodec(t, "secret-a", clock).Issue(1, 300)
	require.NoError(t, err)

	_, err = newCodec(t, "secret-b", clock).Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSecretKeyProvider(t *testing.T) {
	_, err := NewSecretKeyProvider("")
	assert.ErrorIs(t, err, ErrEmptySecret)

	p, err := NewSecretKeyProvider("secret")
	require.NoError(t, err)
	k := p.Key()
	assert.Len(t, k, 32)
	k[0] ^= 0xff
	assert.NotEqual(t, k, p.Key(), "Key returns a copy")
}

package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rs io.ReadSeeker) []byte {
	t.Helper()
	data, err := io.ReadAll(rs)
	require.NoError(t, err)
	if c, ok := rs.(io.Closer); ok {
		_ = c.Close()
	}
	return data
}

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	p := ConvertedPath(1, 2)
	require.NoError(t, s.SaveWithContext(ctx, p, strings.NewReader("first")))

	ok, err := s.Exists(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)

	rs, err := s.GetWithContext(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "first", string(readAll(t, rs)))

	// 覆盖写
	require.NoError(t, s.SaveWithContext(ctx, p, bytes.NewReader([]byte("second"))))
	rs, err = s.GetWithContext(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(readAll(t, rs)))

	require.NoError(t, s.DeleteWithContext(ctx, p))
	ok, err = s.Exists(ctx, p)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorageNotFound(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.GetWithContext(ctx, "uploads/1/img/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteWithContext(ctx, "uploads/1/img/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, DeleteIfExists(ctx, s, "uploads/1/img/missing.png"))
}

func TestLocalStoragePathTraversal(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, attempt := range []string{
		"../../../etc/passwd",
		"..\\..\\windows",
		"..",
		".",
		"",
		"/etc/passwd",
		"folder/../../x",
		"name with space.png",
	} {
		t.Run("save_"+attempt, func(t *testing.T) {
			assert.Error(t, s.SaveWithContext(ctx, attempt, strings.NewReader("x")))
		})
		t.Run("get_"+attempt, func(t *testing.T) {
			_, err := s.GetWithContext(ctx, attempt)
			assert.Error(t, err)
		})
	}
}

func TestLocalStorageLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	require.NoError(t, s.SaveWithContext(ctx, "uploads/5/thmb/a.jpg", strings.NewReader("jpg")))

	entries, err := os.ReadDir(dir + "/uploads/5/thmb")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.jpg", entries[0].Name())
}

func TestLocalStorageHealthAndName(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Health(context.Background()))
	assert.Equal(t, "local", s.Name())
}

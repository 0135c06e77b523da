package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathBuilders(t *testing.T) {
	assert.Equal(t, "uploads/7/img/a1b2.jpg", OriginalPath(7, "a1b2.jpg"))
	assert.Equal(t, "uploads/7/thmb/a1b2_200x200.jpg", ThumbnailPath(7, "a1b2_200x200.jpg"))
	assert.Equal(t, "uploads/7/temp/42.png", ConvertedPath(7, 42))
}

func TestPathBuildersStripDirectories(t *testing.T) {
	assert.Equal(t, "uploads/1/img/passwd", OriginalPath(1, "../../etc/passwd"))
	assert.Equal(t, "uploads/1/thmb/x.jpg", ThumbnailPath(1, "nested/x.jpg"))
}

func TestPathBuildersAreValidStoragePaths(t *testing.T) {
	for _, p := range []string{OriginalPath(3, "f.png"), ThumbnailPath(3, "f.jpg"), ConvertedPath(3, 9)} {
		assert.True(t, IsValidStoragePath(p), p)
	}
}

func TestIsConvertedPath(t *testing.T) {
	assert.True(t, IsConvertedPath(ConvertedPath(3, 9)))
	assert.False(t, IsConvertedPath(OriginalPath(3, "a.png")))
	assert.False(t, IsConvertedPath(ThumbnailPath(3, "a_200x200.jpg")))
	assert.False(t, IsConvertedPath("uploads/3/temp"))
}

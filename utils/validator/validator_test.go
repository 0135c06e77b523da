package validator

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestIsImage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
		ok   bool
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}, "image/jpeg", true},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png", true},
		{"gif", []byte("GIF89a"), "image/gif", true},
		{"text", []byte("hello world"), "text/plain; charset=utf-8", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bytes.NewReader(tt.data)
			ok, mime, err := IsImage(reader)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, mime)

			pos, _ := reader.Seek(0, 1)
			assert.Equal(t, int64(0), pos)
		})
	}
}

func TestValidateImageAcceptsFormats(t *testing.T) {
	var jpg, gf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, image.NewRGBA(image.Rect(0, 0, 30, 20)), nil))
	require.NoError(t, gif.Encode(&gf, image.NewPaletted(image.Rect(0, 0, 5, 5), color.Palette{color.Black, color.White}), nil))

	tests := []struct {
		name string
		data []byte
		mime string
		ext  string
		w, h int
	}{
		{"png", encodePNG(t, 12, 8), "image/png", ".png", 12, 8},
		{"jpeg", jpg.Bytes(), "image/jpeg", ".jpg", 30, 20},
		{"gif", gf.Bytes(), "image/gif", ".gif", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ValidateImage(tt.data, Limits{MaxBytes: 1 << 20, MaxWidth: 100, MaxHeight: 100})
			require.NoError(t, err)
			assert.Equal(t, tt.mime, info.MimeType)
			assert.Equal(t, tt.ext, info.Ext)
			assert.Equal(t, tt.w, info.Width)
			assert.Equal(t, tt.h, info.Height)
		})
	}
}

func TestValidateImageRejects(t *testing.T) {
	pngData := encodePNG(t, 100, 50)

	tests := []struct {
		name   string
		data   []byte
		limits Limits
		reason string
	}{
		{"empty", nil, Limits{}, "empty"},
		{"too large", pngData, Limits{MaxBytes: 10}, "exceeds"},
		{"not an image", []byte(strings.Repeat("a", 64)), Limits{}, "unsupported"},
		{"truncated png", pngData[:12], Limits{}, "valid image"},
		{"width at limit", pngData, Limits{MaxWidth: 100}, "width"},
		{"height at limit", pngData, Limits{MaxHeight: 50}, "height"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateImage(tt.data, tt.limits)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}

	_, err := ValidateImage(pngData, Limits{MaxWidth: 101, MaxHeight: 51})
	assert.NoError(t, err)
}

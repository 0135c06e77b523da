// Package vips provides a libvips thumbnail backend.
package vips

import (
	"fmt"
	"sync"

	"github.com/anoixa/image-tiers/internal/image"
	govips "github.com/davidbyttow/govips/v2/vips"
)

var startOnce sync.Once

// Startup 初始化 libvips，只执行一次
func Startup() {
	startOnce.Do(func() {
		govips.LoggingSettings(nil, govips.LogLevelWarning)
		govips.Startup(nil)
	})
}

// Shutdown 释放 libvips
func Shutdown() {
	govips.Shutdown()
}

// Thumbnailer libvips 后端，使用 shrink-on-load
type Thumbnailer struct {
	quality int
}

// New 创建后端并初始化 libvips
func New(quality int) *Thumbnailer {
	if quality < 1 || quality > 100 {
		quality = image.DefaultQuality
	}
	Startup()
	return &Thumbnailer{quality: quality}
}

func (t *Thumbnailer) Name() string {
	return "vips"
}

// Load 校验可解码并读取尺寸，缩放时从原始字节重新加载
func (t *Thumbnailer) Load(data []byte) (image.Source, error) {
	ref, err := govips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("auto rotate: %w", err)
	}
	return &source{data: data, width: ref.Width(), height: ref.Height(), quality: t.quality}, nil
}

type source struct {
	data    []byte
	width   int
	height  int
	quality int
}

func (s *source) Size() (int, int) {
	return s.width, s.height
}

func (s *source) Fit(width, height int) (*image.Rendered, error) {
	ref, err := govips.NewThumbnailWithSizeFromBuffer(s.data, width, height, govips.InterestingNone, govips.SizeDown)
	if err != nil {
		return nil, fmt.Errorf("thumbnail from buffer: %w", err)
	}
	defer ref.Close()

	if ref.HasAlpha() {
		if err := ref.Flatten(&govips.Color{R: 255, G: 255, B: 255}); err != nil {
			return nil, fmt.Errorf("flatten alpha: %w", err)
		}
	}

	buf, _, err := ref.ExportJpeg(&govips.JpegExportParams{
		Quality:       s.quality,
		StripMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export thumbnail jpeg: %w", err)
	}
	return &image.Rendered{Data: buf, Width: ref.Width(), Height: ref.Height()}, nil
}

func (s *source) Close() {}

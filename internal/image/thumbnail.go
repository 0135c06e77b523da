package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	"image/color"

	"github.com/disintegration/imaging"
)

// DefaultQuality 缩略图 JPEG 质量
const DefaultQuality = 100

// Rendered 编码后的缩略图
type Rendered struct {
	Data   []byte
	Width  int
	Height int
}

// Source 已解码的上传图片，Fit 可并发调用
type Source interface {
	Size() (width, height int)
	// Fit 等比缩放到 width x height 框内，不放大，透明区域填充白色，输出 JPEG
	Fit(width, height int) (*Rendered, error)
	Close()
}

// Thumbnailer 缩略图后端
type Thumbnailer interface {
	Name() string
	Load(data []byte) (Source, error)
}

// ImagingThumbnailer 纯 Go 实现，基于 disintegration/imaging
type ImagingThumbnailer struct {
	quality int
}

// NewImagingThumbnailer quality 超出 1-100 时使用 DefaultQuality
func NewImagingThumbnailer(quality int) *ImagingThumbnailer {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &ImagingThumbnailer{quality: quality}
}

func (t *ImagingThumbnailer) Name() string {
	return "imaging"
}

// Load 解码并按 EXIF 方向校正
func (t *ImagingThumbnailer) Load(data []byte) (Source, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &imagingSource{img: flatten(img), quality: t.quality}, nil
}

type imagingSource struct {
	img     stdimage.Image
	quality int
}

func (s *imagingSource) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *imagingSource) Fit(width, height int) (*Rendered, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid thumbnail box %dx%d", width, height)
	}

	thumb := imaging.Fit(s.img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(s.quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	b := thumb.Bounds()
	return &Rendered{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

func (s *imagingSource) Close() {}

// flatten 将带透明通道的图片合成到白色背景上
func flatten(img stdimage.Image) stdimage.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, stdimage.Pt(0, 0), 1.0)
}

package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

var blackWhite = color.Palette{color.Black, color.White}

// ToBinary 生成二值化 PNG
// 已是单通道的图片（灰度、调色板）直接重新编码
func ToBinary(data []byte) ([]byte, error) {
	src, _, err := stdimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode original: %w", err)
	}

	out := src
	if !isSingleBand(src) {
		gray := imaging.Grayscale(src)
		dst := stdimage.NewPaletted(gray.Bounds(), blackWhite)
		draw.FloydSteinberg.Draw(dst, dst.Bounds(), gray, gray.Bounds().Min)
		out = dst
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode binary png: %w", err)
	}
	return buf.Bytes(), nil
}

func isSingleBand(img stdimage.Image) bool {
	switch img.(type) {
	case *stdimage.Gray, *stdimage.Gray16, *stdimage.Paletted:
		return true
	}
	return false
}

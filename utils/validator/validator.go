package validator

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/anoixa/image-tiers/utils/format"
	"github.com/gabriel-vasile/mimetype"

	// DecodeConfig 需要的解码器
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// allowedImageMimeTypes Allowed image types
var allowedImageMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// ValidationError 上传内容不合法，对应 400
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValidationError 判断是否为校验错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Limits 上传限制，0 表示不限制
type Limits struct {
	MaxBytes  int64
	MaxWidth  int
	MaxHeight int
}

// ImageInfo 校验通过的图片信息
type ImageInfo struct {
	MimeType string
	Ext      string
	Width    int
	Height   int
}

// IsImage Verify if the file content is an allowed image type.
func IsImage(file io.ReadSeeker) (bool, string, error) {
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return false, "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false, "", err
	}

	mime := mtype.String()
	_, ok := allowedImageMimeTypes[mime]
	return ok, mime, nil
}

// ValidateImage 检查类型、大小与尺寸；宽高必须严格小于上限
func ValidateImage(data []byte, limits Limits) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Field: "img", Reason: "file is empty"}
	}
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return nil, &ValidationError{Field: "img", Reason: fmt.Sprintf("file exceeds %s", format.HumanReadableSize(limits.MaxBytes))}
	}

	mime := mimetype.Detect(data).String()
	ext, ok := allowedImageMimeTypes[mime]
	if !ok {
		return nil, &ValidationError{Field: "img", Reason: fmt.Sprintf("unsupported file type %s", mime)}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Field: "img", Reason: "upload a valid image"}
	}
	if limits.MaxWidth > 0 && cfg.Width >= limits.MaxWidth {
		return nil, &ValidationError{Field: "img", Reason: fmt.Sprintf("width must be less than %d", limits.MaxWidth)}
	}
	if limits.MaxHeight > 0 && cfg.Height >= limits.MaxHeight {
		return nil, &ValidationError{Field: "img", Reason: fmt.Sprintf("height must be less than %d", limits.MaxHeight)}
	}

	return &ImageInfo{MimeType: mime, Ext: ext, Width: cfg.Width, Height: cfg.Height}, nil
}

package storage

import (
	"fmt"
	"path"
	"strings"
)

const uploadsRoot = "uploads"

// OriginalPath 原图存储路径 uploads/{owner}/img/{filename}
func OriginalPath(ownerID uint, filename string) string {
	return path.Join(uploadsRoot, fmt.Sprint(ownerID), "img", path.Base(filename))
}

// ThumbnailPath 缩略图存储路径 uploads/{owner}/thmb/{filename}
func ThumbnailPath(ownerID uint, filename string) string {
	return path.Join(uploadsRoot, fmt.Sprint(ownerID), "thmb", path.Base(filename))
}

// ConvertedPath 二值化文件路径 uploads/{owner}/temp/{image}.png
// 只按图片 ID 寻址，重复签发会覆盖同一文件
func ConvertedPath(ownerID, imageID uint) string {
	return path.Join(uploadsRoot, fmt.Sprint(ownerID), "temp", fmt.Sprintf("%d.png", imageID))
}

// IsConvertedPath 是否为 ConvertedPath 生成的路径
func IsConvertedPath(key string) bool {
	parts := strings.Split(path.Clean(key), "/")
	return len(parts) == 4 && parts[0] == uploadsRoot && parts[2] == "temp"
}

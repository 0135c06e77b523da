package storage

import (
	"mime"
	"path"
)

// contentTypeFor 根据扩展名推断 Content-Type
func contentTypeFor(identifier string) string {
	if ct := mime.TypeByExtension(path.Ext(identifier)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ContentType 对外暴露，供媒体路由设置响应头
func ContentType(identifier string) string {
	return contentTypeFor(identifier)
}

package utils

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/anoixa/image-tiers/config"
	"github.com/anoixa/image-tiers/utils/logger"
)

// LogIfDev 仅在开发构建中输出调试日志
func LogIfDev(msg string) {
	if config.IsDevelopment() {
		logger.L.Debug(SanitizeLogMessage(msg))
	}
}

// LogIfDevf 格式化版本的 LogIfDev
func LogIfDevf(format string, args ...any) {
	if config.IsDevelopment() {
		logger.L.Debug(SanitizeLogMessage(fmt.Sprintf(format, args...)))
	}
}

// SanitizeLogMessage 去除不可打印字符，防止日志注入
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\t' {
			sb.WriteRune(' ')
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SanitizeLogUsername 截断并清洗用户名
func SanitizeLogUsername(username string) string {
	if len(username) > 50 {
		username = username[:50] + "..."
	}
	return SanitizeLogMessage(username)
}

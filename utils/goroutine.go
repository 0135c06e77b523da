package utils

import (
	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
)

// SafeGo 拦截 panic 的 goroutine
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				logger.L.Error("panic recovered in goroutine", zap.Any("panic", err), zap.Stack("stack"))
			}
		}()
		fn()
	}()
}

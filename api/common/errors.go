package common

import (
	"errors"
	"net/http"

	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/database/repo/images"
	"github.com/anoixa/image-tiers/database/repo/tiers"
	imagesvc "github.com/anoixa/image-tiers/internal/image"
	"github.com/anoixa/image-tiers/internal/link"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/anoixa/image-tiers/storage"
	"github.com/anoixa/image-tiers/utils/logger"
	"github.com/anoixa/image-tiers/utils/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// statusMapping 领域错误到 HTTP 状态码，按顺序匹配
var statusMapping = []struct {
	err    error
	status int
	msg    string
}{
	{link.ErrTokenExpired, http.StatusForbidden, "Expired"},
	{link.ErrTokenInvalid, http.StatusNotFound, "Not found"},
	{link.ErrTTLOutOfRange, http.StatusBadRequest, ""},
	{models.ErrPolicyInvariantViolation, http.StatusBadRequest, ""},
	{models.ErrResolutionOutOfBounds, http.StatusBadRequest, ""},
	{tier.ErrNameRequired, http.StatusBadRequest, ""},
	{imagesvc.ErrNoOriginal, http.StatusForbidden, "Image has no stored original"},
	{imagesvc.ErrLinkNotAllowed, http.StatusForbidden, "Not allowed to generate temporary links"},
	{images.ErrImageNotFound, http.StatusNotFound, "Image not found"},
	{accounts.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{tiers.ErrTierNotFound, http.StatusNotFound, "Tier not found"},
	{tiers.ErrResolutionNotFound, http.StatusNotFound, "Resolution not found"},
	{storage.ErrNotFound, http.StatusNotFound, "Not found"},
	{gorm.ErrRecordNotFound, http.StatusNotFound, "Not found"},
	{tier.ErrTierInUse, http.StatusConflict, ""},
	{tier.ErrResolutionExists, http.StatusConflict, ""},
	{accounts.ErrUsernameTaken, http.StatusConflict, ""},
}

// StatusFor 返回错误对应的状态码与对外消息，未知错误为 500
func StatusFor(err error) (int, string) {
	if validator.IsValidationError(err) {
		return http.StatusBadRequest, err.Error()
	}
	for _, m := range statusMapping {
		if errors.Is(err, m.err) {
			msg := m.msg
			if msg == "" {
				msg = err.Error()
			}
			return m.status, msg
		}
	}
	if errors.Is(err, imagesvc.ErrProcessing) {
		return http.StatusInternalServerError, "Image processing failed"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// RespondServiceError 按领域错误写入响应，5xx 记录日志
func RespondServiceError(c *gin.Context, err error) {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.L.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	RespondError(c, status, msg)
}

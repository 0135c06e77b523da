package admin

import (
	"net/http"
	"strconv"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/internal/account"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/gin-gonic/gin"
)

// Handler 管理员接口：等级、分辨率与用户
type Handler struct {
	tiers    *tier.Service
	accounts *account.Service
}

// NewHandler 创建管理处理器
func NewHandler(tiers *tier.Service, accounts *account.Service) *Handler {
	return &Handler{tiers: tiers, accounts: accounts}
}

// parseID 解析路径中的 :id，失败时已写入 400
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.RespondError(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

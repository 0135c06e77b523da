package admin

import (
	"net/http"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/gin-gonic/gin"
)

// ListTiers 列出等级
// @Summary      List tiers
// @Tags         admin
// @Produce      json
// @Success      200  {object}  common.Response{data=[]models.TierPolicy}
// @Security     BearerAuth
// @Router       /admin/tiers [get]
func (h *Handler) ListTiers(c *gin.Context) {
	list, err := h.tiers.List(c.Request.Context())
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, list)
}

// GetTier 获取等级
// @Summary      Get tier
// @Tags         admin
// @Produce      json
// @Param        id  path  int  true  "Tier ID"
// @Success      200  {object}  common.Response{data=models.TierPolicy}
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /admin/tiers/{id} [get]
func (h *Handler) GetTier(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.tiers.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, t)
}

// CreateTier 新建等级，同名则更新
// @Summary      Create tier
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body  tier.Input  true  "Tier policy"
// @Success      201  {object}  common.Response{data=models.TierPolicy}
// @Failure      400  {object}  common.Response
// @Security     BearerAuth
// @Router       /admin/tiers [post]
func (h *Handler) CreateTier(c *gin.Context) {
	var in tier.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.tiers.CreateOrUpdate(c.Request.Context(), in)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondCreated(c, t)
}

// UpdateTier 修改等级，不影响已创建的图片
// @Summary      Update tier
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path  int         true  "Tier ID"
// @Param        body  body  tier.Input  true  "Tier policy"
// @Success      200  {object}  common.Response{data=models.TierPolicy}
// @Failure      400  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /admin/tiers/{id} [put]
func (h *Handler) UpdateTier(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in tier.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.tiers.Update(c.Request.Context(), id, in)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, t)
}

// DeleteTier 删除未被引用的等级
// @Summary      Delete tier
// @Tags         admin
// @Produce      json
// @Param        id  path  int  true  "Tier ID"
// @Success      200  {object}  common.Response
// @Failure      409  {object}  common.Response
// @Security     BearerAuth
// @Router       /admin/tiers/{id} [delete]
func (h *Handler) DeleteTier(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.tiers.Delete(c.Request.Context(), id); err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Tier deleted", gin.H{"id": id})
}

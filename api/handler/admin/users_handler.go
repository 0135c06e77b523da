package admin

import (
	"net/http"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/internal/account"
	"github.com/gin-gonic/gin"
)

type SetTierRequest struct {
	TierID uint `json:"tier_id" binding:"required"`
}

// ListUsers 列出用户
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Success      200  {object}  common.Response{data=[]models.User}
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.accounts.List(c.Request.Context())
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, list)
}

// CreateUser 新建用户
// @Summary      Create user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body  account.CreateInput  true  "User"
// @Success      201  {object}  common.Response{data=models.User}
// @Failure      400  {object}  common.Response
// @Failure      409  {object}  common.Response
// @Security     BearerAuth
// @Router       /admin/users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var in account.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.Create(c.Request.Context(), in)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondCreated(c, user)
}

// SetUserTier 变更用户等级
// @Summary      Change user tier
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path  int             true  "User ID"
// @Param        body  body  SetTierRequest  true  "Tier"
// @Success      200  {object}  common.Response{data=models.User}
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /admin/users/{id}/tier [put]
func (h *Handler) SetUserTier(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body SetTierRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.SetTier(c.Request.Context(), id, body.TierID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, user)
}

// DeleteUser 删除用户及其全部图片
// @Summary      Delete user
// @Tags         admin
// @Produce      json
// @Param        id  path  int  true  "User ID"
// @Success      200  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "User deleted", gin.H{"id": id})
}

package images

import (
	"net/http"
	"strconv"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/api/middleware"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/gin-gonic/gin"
)

// GetImage 获取单张图片
// @Summary      Get image
// @Tags         images
// @Produce      json
// @Param        user_id  path  int  true  "User ID"
// @Param        id       path  int  true  "Image ID"
// @Success      200  {object}  common.Response{data=ImageDTO}
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /users/{user_id}/images/{id} [get]
func (h *Handler) GetImage(c *gin.Context) {
	image, ok := h.loadImage(c)
	if !ok {
		return
	}
	common.RespondSuccess(c, h.toImageDTO(image))
}

// loadImage 按路径中的 :id 读取属于 :user_id 的图片，失败时已写入响应
func (h *Handler) loadImage(c *gin.Context) (*models.Image, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.RespondError(c, http.StatusBadRequest, "Invalid image id")
		return nil, false
	}

	ownerID := c.GetUint(middleware.ContextOwnerIDKey)
	image, err := h.images.Get(c.Request.Context(), ownerID, uint(id))
	if err != nil {
		common.RespondServiceError(c, err)
		return nil, false
	}
	return image, true
}

package images

import (
	"github.com/anoixa/image-tiers/api/common"
	"github.com/gin-gonic/gin"
)

// DeleteImage 删除图片及其全部文件
// @Summary      Delete image
// @Tags         images
// @Produce      json
// @Param        user_id  path  int  true  "User ID"
// @Param        id       path  int  true  "Image ID"
// @Success      200  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /users/{user_id}/images/{id} [delete]
func (h *Handler) DeleteImage(c *gin.Context) {
	image, ok := h.loadImage(c)
	if !ok {
		return
	}

	if err := h.images.Delete(c.Request.Context(), image); err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Image deleted", gin.H{"id": image.ID})
}

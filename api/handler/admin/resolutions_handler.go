package admin

import (
	"net/http"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/gin-gonic/gin"
)

type ResolutionRequest struct {
	Width  int `json:"width" binding:"required"`
	Height int `json:"height" binding:"required"`
}

// ListResolutions 列出分辨率
// @Summary      List resolutions
// @Tags         admin
// @Produce      json
// @Success      200  {object}  common.Response{data=[]models.Resolution}
// @Security     BearerAuth
// @Router       /admin/resolutions [get]
func (h *Handler) ListResolutions(c *gin.Context) {
	list, err := h.tiers.ListResolutions(c.Request.Context())
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, list)
}

// CreateResolution 新增分辨率
// @Summary      Create resolution
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body  ResolutionRequest  true  "Width and height"
// @Success      201  {object}  common.Response{data=models.Resolution}
// @Failure      400  {object}  common.Response
// @Failure      409  {object}  common.Response
// @Security     BearerAuth
// @Router       /admin/resolutions [post]
func (h *Handler) CreateResolution(c *gin.Context) {
	var body ResolutionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.tiers.AddResolution(c.Request.Context(), body.Width, body.Height)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondCreated(c, res)
}

// DeleteResolution 删除分辨率，已生成的缩略图保留
// @Summary      Delete resolution
// @Tags         admin
// @Produce      json
// @Param        id  path  int  true  "Resolution ID"
// @Success      200  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /admin/resolutions/{id} [delete]
func (h *Handler) DeleteResolution(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.tiers.DeleteResolution(c.Request.Context(), id); err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Resolution deleted", gin.H{"id": id})
}

package images

import (
	"io"
	"net/http"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/api/middleware"
	"github.com/anoixa/image-tiers/internal/image"
	"github.com/anoixa/image-tiers/utils"
	"github.com/anoixa/image-tiers/utils/format"
	"github.com/anoixa/image-tiers/utils/validator"
	"github.com/gin-gonic/gin"
)

// uploadField multipart 中图片字段名
const uploadField = "img"

// CreateImage 上传图片并按等级生成缩略图
// @Summary      Upload image
// @Tags         images
// @Accept       multipart/form-data
// @Produce      json
// @Param        user_id  path      int   true  "User ID"
// @Param        img      formData  file  true  "Image file"
// @Success      201  {object}  common.Response{data=ImageDTO}
// @Failure      400  {object}  common.Response
// @Security     BearerAuth
// @Router       /users/{user_id}/images [post]
func (h *Handler) CreateImage(c *gin.Context) {
	ownerID := c.GetUint(middleware.ContextOwnerIDKey)

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "An image file is required under the 'img' key")
		return
	}
	if h.limits.MaxBytes > 0 && fileHeader.Size > h.limits.MaxBytes {
		common.RespondError(c, http.StatusBadRequest, "File size exceeds the upload limit of "+format.HumanReadableSize(h.limits.MaxBytes))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	var r io.Reader = file
	if h.limits.MaxBytes > 0 {
		r = io.LimitReader(file, h.limits.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		if utils.IsClientDisconnect(err) {
			c.Abort()
			return
		}
		common.RespondError(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	info, err := validator.ValidateImage(data, h.limits)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	created, err := h.pipeline.Create(c.Request.Context(), ownerID, image.Upload{
		Name:     fileHeader.Filename,
		MimeType: info.MimeType,
		Ext:      info.Ext,
		Data:     data,
	})
	if err != nil {
		if utils.IsContextCanceled(err) {
			c.Abort()
			return
		}
		common.RespondServiceError(c, err)
		return
	}

	common.RespondCreated(c, h.toImageDTO(created))
}

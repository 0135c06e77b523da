package images

import (
	"math"
	"strconv"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/api/middleware"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ImageListResponse struct {
	Images     []*ImageDTO `json:"images"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// ListImages 获取用户的图片列表
// @Summary      List images
// @Tags         images
// @Produce      json
// @Param        user_id  path   int  true   "User ID"
// @Param        page     query  int  false  "Page number"
// @Param        limit    query  int  false  "Page size"
// @Success      200  {object}  common.Response{data=ImageListResponse}
// @Security     BearerAuth
// @Router       /users/{user_id}/images [get]
func (h *Handler) ListImages(c *gin.Context) {
	ownerID := c.GetUint(middleware.ContextOwnerIDKey)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	list, total, err := h.images.List(c.Request.Context(), ownerID, page, limit)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, ImageListResponse{
		Images:     h.toImageDTOs(list),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	})
}

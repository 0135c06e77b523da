package images

import (
	"io"
	"strings"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/gin-gonic/gin"
)

// ServeMedia 输出原图或缩略图
// @Summary      Serve stored media
// @Tags         media
// @Produce      octet-stream
// @Param        path  path  string  true  "Storage key"
// @Success      200
// @Failure      404  {object}  common.Response
// @Router       /media/{path} [get]
func (h *Handler) ServeMedia(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")

	r, err := h.images.OpenMedia(c.Request.Context(), key)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	serveContent(c, key, r)
}

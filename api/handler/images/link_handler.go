package images

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/api/middleware"
	"github.com/anoixa/image-tiers/internal/access"
	"github.com/anoixa/image-tiers/internal/image"
	"github.com/anoixa/image-tiers/storage"
	"github.com/anoixa/image-tiers/utils"
	"github.com/gin-gonic/gin"
)

// GenerateLinkRequest 签发临时链接请求，ttl 单位为秒
type GenerateLinkRequest struct {
	TTL *int `json:"ttl" binding:"required"`
}

// LinkResponse 临时链接及其过期时间（unix 秒）
type LinkResponse struct {
	Link      string `json:"link"`
	ExpiresAt int64  `json:"expires_at"`
}

// TemporaryImageResponse 临时链接解析结果
type TemporaryImageResponse struct {
	Img string `json:"img"`
}

// GenerateLink 为保留了原图的图片签发临时链接
// @Summary      Generate temporary link
// @Tags         images
// @Accept       json
// @Produce      json
// @Param        user_id  path  int                  true  "User ID"
// @Param        id       path  int                  true  "Image ID"
// @Param        body     body  GenerateLinkRequest  true  "ttl in seconds, 300..30000"
// @Success      200  {object}  common.Response{data=LinkResponse}
// @Failure      400  {object}  common.Response
// @Failure      403  {object}  common.Response
// @Security     BearerAuth
// @Router       /users/{user_id}/images/{id}/generate_link [post]
func (h *Handler) GenerateLink(c *gin.Context) {
	// 等级权限先于请求体校验
	caller, _ := middleware.CallerFrom(c)
	if !access.CanGenerateLink(caller) {
		common.RespondServiceError(c, image.ErrLinkNotAllowed)
		return
	}

	var body GenerateLinkRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		common.RespondError(c, http.StatusBadRequest, "ttl is required")
		return
	}

	img, ok := h.loadImage(c)
	if !ok {
		return
	}

	issued, err := h.images.IssueLink(c.Request.Context(), caller, img, *body.TTL)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, LinkResponse{
		Link:      h.linkURL(issued.ImageID, issued.Token),
		ExpiresAt: issued.ExpiresAt.Unix(),
	})
}

func (h *Handler) linkURL(imageID uint, token string) string {
	return utils.JoinURL(h.baseURL, "images", strconv.FormatUint(uint64(imageID), 10), "tmp", token)
}

// GetTemporaryLink 校验临时链接，返回二值化图片地址
// @Summary      Resolve temporary link
// @Tags         links
// @Produce      json
// @Param        id     path  int     true  "Image ID"
// @Param        token  path  string  true  "Link token"
// @Success      200  {object}  common.Response{data=TemporaryImageResponse}
// @Failure      403  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Router       /images/{id}/tmp/{token} [get]
func (h *Handler) GetTemporaryLink(c *gin.Context) {
	imageID, ok := linkImageID(c)
	if !ok {
		return
	}
	token := c.Param("token")

	if _, err := h.images.ResolveLink(c.Request.Context(), imageID, token); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, TemporaryImageResponse{
		Img: utils.JoinURL(h.linkURL(imageID, token), "img"),
	})
}

// ServeTemporaryImage 令牌有效期内输出二值化图片
func (h *Handler) ServeTemporaryImage(c *gin.Context) {
	imageID, ok := linkImageID(c)
	if !ok {
		return
	}

	r, key, err := h.images.OpenLink(c.Request.Context(), imageID, c.Param("token"))
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}

	c.Header("Cache-Control", "private, no-store")
	serveContent(c, key, r)
}

func linkImageID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.RespondError(c, http.StatusNotFound, "Not found")
		return 0, false
	}
	return uint(id), true
}

func serveContent(c *gin.Context, key string, r io.ReadSeeker) {
	c.Header("Content-Type", storage.ContentType(key))
	c.Header("X-Content-Type-Options", "nosniff")
	http.ServeContent(c.Writer, c.Request, "", time.Time{}, r)
}

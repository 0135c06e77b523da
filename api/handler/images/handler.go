package images

import (
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/internal/image"
	"github.com/anoixa/image-tiers/utils"
	"github.com/anoixa/image-tiers/utils/validator"
)

// Handler 图片处理器
type Handler struct {
	pipeline *image.Pipeline
	images   *image.Service
	limits   validator.Limits
	baseURL  string
}

// NewHandler 图片处理器，baseURL 用于生成绝对链接
func NewHandler(pipeline *image.Pipeline, images *image.Service, limits validator.Limits, baseURL string) *Handler {
	return &Handler{
		pipeline: pipeline,
		images:   images,
		limits:   limits,
		baseURL:  baseURL,
	}
}

type ThumbnailDTO struct {
	URL    string `json:"thmb"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ImageDTO 图片描述，未保留原图时 img 为 null
type ImageDTO struct {
	ID           uint            `json:"id"`
	Img          *string         `json:"img"`
	Thumbnails   []*ThumbnailDTO `json:"thumbnails"`
	OriginalName string          `json:"original_name"`
	MimeType     string          `json:"mime_type"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	CreatedAt    int64           `json:"created_at"`
}

func (h *Handler) mediaURL(key string) string {
	return utils.JoinURL(h.baseURL, "media", key)
}

func (h *Handler) toImageDTO(image *models.Image) *ImageDTO {
	dto := &ImageDTO{
		ID:           image.ID,
		Thumbnails:   make([]*ThumbnailDTO, 0, len(image.Thumbnails)),
		OriginalName: image.OriginalName,
		MimeType:     image.MimeType,
		Width:        image.Width,
		Height:       image.Height,
		CreatedAt:    image.CreatedAt.Unix(),
	}
	if image.HasOriginal() {
		u := h.mediaURL(*image.OriginalPath)
		dto.Img = &u
	}
	for _, t := range image.Thumbnails {
		dto.Thumbnails = append(dto.Thumbnails, &ThumbnailDTO{
			URL:    h.mediaURL(t.Path),
			Width:  t.Width,
			Height: t.Height,
		})
	}
	return dto
}

func (h *Handler) toImageDTOs(images []*models.Image) []*ImageDTO {
	dtos := make([]*ImageDTO, len(images))
	for i, image := range images {
		dtos[i] = h.toImageDTO(image)
	}
	return dtos
}

// Package image implements the tiered upload pipeline, image deletion and
// temporary link issuance.
package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/anoixa/image-tiers/database"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/database/repo/images"
	"github.com/anoixa/image-tiers/internal/metrics"
	"github.com/anoixa/image-tiers/internal/worker"
	"github.com/anoixa/image-tiers/storage"
	"github.com/anoixa/image-tiers/utils"
	"github.com/anoixa/image-tiers/utils/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ErrProcessing 图片处理失败，本次创建未留下任何数据
var ErrProcessing = errors.New("image processing failed")

// Upload 已通过校验的上传文件
type Upload struct {
	Name     string
	MimeType string
	Ext      string
	Data     []byte
}

// Pipeline 上传处理流水线
type Pipeline struct {
	db          database.Provider
	storage     storage.Provider
	pool        *worker.Pool
	thumbnailer Thumbnailer
	users       *accounts.Repository
	images      *images.Repository
	parallelism int
	newName     func() string
}

// NewPipeline 创建流水线
func NewPipeline(db database.Provider, store storage.Provider, pool *worker.Pool, thumbnailer Thumbnailer) *Pipeline {
	return &Pipeline{
		db:          db,
		storage:     store,
		pool:        pool,
		thumbnailer: thumbnailer,
		users:       accounts.NewRepository(db.DB()),
		images:      images.NewRepository(db.DB()),
		parallelism: pool.Stats().Workers,
		newName:     uuid.NewString,
	}
}

// Create 按所有者当前等级处理上传：保留或丢弃原图，并为每个分辨率生成一张缩略图
// 任一步骤失败时回滚数据库并删除已写入的文件
func (p *Pipeline) Create(ctx context.Context, ownerID uint, up Upload) (*models.Image, error) {
	start := time.Now()
	img, err := p.create(ctx, ownerID, up)
	if err != nil {
		metrics.RecordImageCreated("error", time.Since(start).Seconds())
		return nil, err
	}
	metrics.RecordImageCreated("success", time.Since(start).Seconds())
	return img, nil
}

func (p *Pipeline) create(ctx context.Context, ownerID uint, up Upload) (*models.Image, error) {
	// 等级策略从数据库读取，不使用身份缓存
	owner, err := p.users.GetUserByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner.Tier == nil {
		return nil, fmt.Errorf("%w: user %d has no tier", ErrProcessing, ownerID)
	}
	policy := owner.Tier
	resolutions := policy.DistinctResolutions()

	var src Source
	err = p.pool.Do(ctx, func() error {
		var err error
		src, err = p.thumbnailer.Load(up.Data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	defer src.Close()

	rendered, err := p.render(ctx, src, resolutions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	width, height := src.Size()
	image := &models.Image{
		UserID:       ownerID,
		OriginalName: path.Base(up.Name),
		MimeType:     up.MimeType,
		FileSize:     int64(len(up.Data)),
		Width:        width,
		Height:       height,
	}

	base := p.newName()
	var stored []string
	err = p.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if policy.KeepOriginal {
			key := storage.OriginalPath(ownerID, base+normalizeExt(up))
			if err := p.storage.SaveWithContext(ctx, key, bytes.NewReader(up.Data)); err != nil {
				return fmt.Errorf("save original: %w", err)
			}
			stored = append(stored, key)
			image.OriginalPath = &key
		}

		repo := p.images.WithTx(tx)
		if err := repo.CreateImage(ctx, image); err != nil {
			return fmt.Errorf("create image: %w", err)
		}

		thumbs := make([]*models.Thumbnail, 0, len(rendered))
		for i, r := range rendered {
			res := resolutions[i]
			key := storage.ThumbnailPath(ownerID, fmt.Sprintf("%s_%dx%d.jpg", base, res.Width, res.Height))
			if err := p.storage.SaveWithContext(ctx, key, bytes.NewReader(r.Data)); err != nil {
				return fmt.Errorf("save thumbnail %s: %w", res, err)
			}
			stored = append(stored, key)
			thumbs = append(thumbs, &models.Thumbnail{
				ImageID:          image.ID,
				ResolutionWidth:  res.Width,
				ResolutionHeight: res.Height,
				Width:            r.Width,
				Height:           r.Height,
				Path:             key,
				FileSize:         int64(len(r.Data)),
			})
		}
		if err := repo.CreateThumbnails(ctx, thumbs); err != nil {
			return fmt.Errorf("create thumbnails: %w", err)
		}
		image.Thumbnails = thumbs
		return nil
	})
	if err != nil {
		p.removeFiles(stored)
		logger.L.Error("image creation rolled back",
			zap.Uint("user_id", ownerID),
			zap.String("name", utils.SanitizeLogMessage(up.Name)),
			zap.Int("files_removed", len(stored)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	metrics.ThumbnailsGeneratedTotal.WithLabelValues(p.thumbnailer.Name()).Add(float64(len(rendered)))
	utils.LogIfDevf("[Pipeline] image %d created for user %d: original=%t thumbnails=%d",
		image.ID, ownerID, image.HasOriginal(), len(image.Thumbnails))
	return image, nil
}

// render 在协程池上并行生成缩略图，结果与 resolutions 一一对应
func (p *Pipeline) render(ctx context.Context, src Source, resolutions []models.Resolution) ([]*Rendered, error) {
	out := make([]*Rendered, len(resolutions))
	if len(resolutions) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.parallelism, 1))
	for i, res := range resolutions {
		g.Go(func() error {
			return p.pool.Do(gctx, func() error {
				r, err := src.Fit(res.Width, res.Height)
				if err != nil {
					return fmt.Errorf("render %s: %w", res, err)
				}
				out[i] = r
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// removeFiles 回滚时清理，使用独立上下文保证请求取消后仍能执行
func (p *Pipeline) removeFiles(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := storage.DeleteIfExists(ctx, p.storage, key); err != nil {
			logger.L.Warn("failed to remove file after rollback", zap.String("key", key), zap.Error(err))
		}
	}
}

func normalizeExt(up Upload) string {
	ext := strings.ToLower(up.Ext)
	if ext == "" {
		ext = strings.ToLower(path.Ext(up.Name))
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anoixa/image-tiers/cache"
	"github.com/anoixa/image-tiers/database"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/database/repo/images"
	"github.com/anoixa/image-tiers/internal/access"
	"github.com/anoixa/image-tiers/internal/link"
	"github.com/anoixa/image-tiers/internal/metrics"
	"github.com/anoixa/image-tiers/internal/worker"
	"github.com/anoixa/image-tiers/storage"
	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoOriginal 图片创建时未保留原图，无法生成临时链接
	ErrNoOriginal = errors.New("image has no original")
	// ErrLinkNotAllowed 调用方不是所有者或管理员，或等级不允许生成临时链接
	ErrLinkNotAllowed = errors.New("not allowed to generate temporary links")
)

// IssuedLink 签发结果
type IssuedLink struct {
	ImageID   uint
	Token     string
	ExpiresAt time.Time
}

// Service 图片查询、删除与临时链接
type Service struct {
	db      database.Provider
	storage storage.Provider
	pool    *worker.Pool
	codec   *link.Codec
	cache   cache.Provider
	images  *images.Repository
	users   *accounts.Repository
}

// NewService 创建图片服务，cacheProvider 可为 nil
func NewService(db database.Provider, store storage.Provider, pool *worker.Pool, codec *link.Codec, cacheProvider cache.Provider) *Service {
	return &Service{
		db:      db,
		storage: store,
		pool:    pool,
		codec:   codec,
		cache:   cacheProvider,
		images:  images.NewRepository(db.DB()),
		users:   accounts.NewRepository(db.DB()),
	}
}

// Get 获取属于 ownerID 的图片
func (s *Service) Get(ctx context.Context, ownerID, id uint) (*models.Image, error) {
	return s.images.GetUserImage(ctx, ownerID, id)
}

// List 分页列出 ownerID 的图片
func (s *Service) List(ctx context.Context, ownerID uint, page, limit int) ([]*models.Image, int64, error) {
	return s.images.ListUserImages(ctx, ownerID, page, limit)
}

// Delete 删除图片行、缩略图行以及原图、缩略图和二值化文件
// 先提交数据库删除，再清理文件；文件不存在视为已删除，其他存储错误只记录日志
func (s *Service) Delete(ctx context.Context, image *models.Image) error {
	keys := make([]string, 0, len(image.Thumbnails)+2)
	if image.HasOriginal() {
		keys = append(keys, *image.OriginalPath)
	}
	for _, t := range image.Thumbnails {
		keys = append(keys, t.Path)
	}
	keys = append(keys, storage.ConvertedPath(image.UserID, image.ID))

	err := s.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return s.images.WithTx(tx).DeleteImage(ctx, image.ID)
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, key := range keys {
		if err := storage.DeleteIfExists(ctx, s.storage, key); err != nil {
			failed++
			logger.L.Warn("failed to remove image file",
				zap.Uint("image_id", image.ID), zap.String("key", key), zap.Error(err))
		}
	}

	logger.L.Info("image deleted",
		zap.Uint("image_id", image.ID),
		zap.Uint("user_id", image.UserID),
		zap.Int("files", len(keys)),
		zap.Int("files_failed", failed))
	return nil
}

// DeleteUser 删除用户的全部图片及文件，然后删除用户
func (s *Service) DeleteUser(ctx context.Context, userID uint) error {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return err
	}

	ids, err := s.images.ListUserImageIDs(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		img, err := s.images.GetImageByID(ctx, id)
		if errors.Is(err, images.ErrImageNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := s.Delete(ctx, img); err != nil {
			return fmt.Errorf("delete image %d of user %d: %w", id, userID, err)
		}
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.IdentityKey(userID))
	}
	logger.L.Info("user deleted", zap.Uint("user_id", userID), zap.Int("images", len(ids)))
	return nil
}

// IssueLink 生成二值化文件并签发临时链接令牌
// 先检查权限，再校验有效期
// 每次签发都会重写同一个二值化文件，并发签发时后写入者生效
func (s *Service) IssueLink(ctx context.Context, caller access.Caller, image *models.Image, ttlSeconds int) (*IssuedLink, error) {
	if !access.CanIssueLink(caller, image.UserID) {
		return nil, ErrLinkNotAllowed
	}
	if err := link.ValidateTTL(ttlSeconds); err != nil {
		return nil, err
	}
	if !image.HasOriginal() {
		return nil, ErrNoOriginal
	}

	original, err := s.readAll(ctx, *image.OriginalPath)
	if err != nil {
		return nil, fmt.Errorf("read original: %w", err)
	}

	var converted []byte
	err = s.pool.Do(ctx, func() error {
		var err error
		converted, err = ToBinary(original)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	key := storage.ConvertedPath(image.UserID, image.ID)
	if err := s.storage.SaveWithContext(ctx, key, bytes.NewReader(converted)); err != nil {
		return nil, fmt.Errorf("save converted file: %w", err)
	}

	token, expiresAt, err := s.codec.Issue(image.ID, ttlSeconds)
	if err != nil {
		return nil, err
	}

	metrics.LinksIssuedTotal.Inc()
	logger.L.Info("temporary link issued",
		zap.Uint("image_id", image.ID),
		zap.Uint("caller_id", caller.UserID),
		zap.Time("expires_at", expiresAt))
	return &IssuedLink{ImageID: image.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveLink 校验令牌并返回二值化文件的存储路径
// 令牌无效、与图片不匹配、图片或文件不存在时返回的错误都应呈现为 404；过期返回 link.ErrTokenExpired
func (s *Service) ResolveLink(ctx context.Context, imageID uint, token string) (string, error) {
	payload, err := s.codec.Validate(token)
	switch {
	case errors.Is(err, link.ErrTokenExpired):
		metrics.RecordLinkValidation("expired")
		logger.L.Info("temporary link expired", zap.Uint("image_id", imageID), zap.Time("expired_at", payload.ExpiresAt()))
		return "", err
	case err != nil:
		metrics.RecordLinkValidation("invalid")
		logger.L.Warn("temporary link token invalid", zap.Uint("image_id", imageID), zap.Int("token_len", len(token)))
		return "", err
	}

	if payload.Subject != imageID {
		metrics.RecordLinkValidation("mismatch")
		logger.L.Warn("temporary link issued for another image",
			zap.Uint("image_id", imageID), zap.Uint("token_subject", payload.Subject))
		return "", fmt.Errorf("%w: subject mismatch", link.ErrTokenInvalid)
	}

	image, err := s.images.GetImageByID(ctx, imageID)
	if err != nil {
		return "", err
	}

	key := storage.ConvertedPath(image.UserID, image.ID)
	ok, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}

	metrics.RecordLinkValidation("ok")
	return key, nil
}

// Open 打开存储中的文件
func (s *Service) Open(ctx context.Context, key string) (io.ReadSeeker, error) {
	if !storage.IsValidStoragePath(key) || !strings.HasPrefix(key, "uploads/") {
		return nil, storage.ErrNotFound
	}
	return s.storage.GetWithContext(ctx, key)
}

func (s *Service) readAll(ctx context.Context, key string) ([]byte, error) {
	r, err := s.storage.GetWithContext(ctx, key)
	if err != nil {
		return nil, err
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	return io.ReadAll(r)
}

// OpenMedia 打开可公开访问的文件，二值化文件只能经临时链接读取
func (s *Service) OpenMedia(ctx context.Context, key string) (io.ReadSeeker, error) {
	if storage.IsConvertedPath(key) {
		return nil, storage.ErrNotFound
	}
	return s.Open(ctx, key)
}

// OpenLink 校验令牌后打开二值化文件，返回文件与存储路径
func (s *Service) OpenLink(ctx context.Context, imageID uint, token string) (io.ReadSeeker, string, error) {
	key, err := s.ResolveLink(ctx, imageID, token)
	if err != nil {
		return nil, "", err
	}
	r, err := s.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return r, key, nil
}

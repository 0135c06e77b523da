package image

import (
	"bytes"
	"context"
	stdimage "image"
	"image/color"
	"image/png"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/anoixa/image-tiers/database"
	"github.com/anoixa/image-tiers/database/dbtest"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/internal/link"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/anoixa/image-tiers/internal/worker"
	"github.com/anoixa/image-tiers/storage"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db       *database.GormProvider
	store    *storage.LocalStorage
	pool     *worker.Pool
	tiers    *tier.Service
	pipeline *Pipeline
	svc      *Service
	codec    *link.Codec
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{db: dbtest.Open(t), now: time.Unix(1_700_000_000, 0)}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	f.store = store

	f.pool = worker.NewPool(2, 16)
	f.pool.Start()
	t.Cleanup(f.pool.Stop)

	keys, err := link.NewSecretKeyProvider("test-secret")
	require.NoError(t, err)
	codec, err := link.NewCodec(keys, link.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.codec = codec

	f.tiers = tier.NewService(f.db, nil, models.ResolutionBounds{MinWidth: 1, MaxWidth: 5000, MinHeight: 1, MaxHeight: 5000})
	f.pipeline = NewPipeline(f.db, store, f.pool, NewImagingThumbnailer(DefaultQuality))
	f.svc = NewService(f.db, store, f.pool, codec, nil)
	return f
}

func (f *fixture) tier(t *testing.T, name string, keep, canLink bool, sizes ...[2]int) *models.TierPolicy {
	t.Helper()
	ctx := context.Background()

	ids := make([]uint, 0, len(sizes))
	for _, s := range sizes {
		res, err := f.tiers.EnsureResolution(ctx, s[0], s[1])
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	p, err := f.tiers.CreateOrUpdate(ctx, tier.Input{Name: name, KeepOriginal: keep, CanGenerateLink: canLink, ResolutionIDs: ids})
	require.NoError(t, err)
	return p
}

func (f *fixture) user(t *testing.T, username string, p *models.TierPolicy, superuser bool) *models.User {
	t.Helper()
	ctx := context.Background()
	repo := accounts.NewRepository(f.db.DB())
	u, err := repo.CreateUser(ctx, username, "password", p.ID, superuser)
	require.NoError(t, err)
	u, err = repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	return u
}

// files 返回存储根目录下的全部文件（相对路径）
func (f *fixture) files(t *testing.T) []string {
	t.Helper()
	var out []string
	root := f.store.BasePath()
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := f.store.Exists(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func pngUpload(t *testing.T, w, h int, fill color.Color) Upload {
	t.Helper()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return Upload{Name: "photo.png", MimeType: "image/png", Ext: ".png", Data: buf.Bytes()}
}

var red = color.NRGBA{R: 220, G: 30, B: 30, A: 255}

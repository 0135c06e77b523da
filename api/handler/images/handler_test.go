package images

import (
	"bytes"
	"context"
	"encoding/json"
	stdimage "image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/api/middleware"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/dbtest"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/internal/access"
	"github.com/anoixa/image-tiers/internal/image"
	"github.com/anoixa/image-tiers/internal/link"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/anoixa/image-tiers/internal/worker"
	"github.com/anoixa/image-tiers/storage"
	"github.com/anoixa/image-tiers/utils/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://img.test"

type env struct {
	router *gin.Engine
	tiers  *tier.Service
	users  *accounts.Repository
	now    time.Time
	// callers 按用户 ID 查找测试身份
	callers map[uint]access.Caller
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	pool := worker.NewPool(2, 16)
	pool.Start()
	t.Cleanup(pool.Stop)

	e := &env{now: time.Unix(1_700_000_000, 0), callers: map[uint]access.Caller{}}
	keys, err := link.NewSecretKeyProvider("handler-secret")
	require.NoError(t, err)
	codec, err := link.NewCodec(keys, link.WithClock(func() time.Time { return e.now }))
	require.NoError(t, err)

	e.tiers = tier.NewService(db, nil, models.ResolutionBounds{MinWidth: 1, MaxWidth: 2000, MinHeight: 1, MaxHeight: 2000})
	e.users = accounts.NewRepository(db.DB())

	h := NewHandler(
		image.NewPipeline(db, store, pool, image.NewImagingThumbnailer(image.DefaultQuality)),
		image.NewService(db, store, pool, codec, nil),
		validator.Limits{MaxBytes: 1 << 20, MaxWidth: 1000, MaxHeight: 1000},
		testBaseURL,
	)

	r := gin.New()
	r.GET("/media/*path", h.ServeMedia)
	r.GET("/images/:id/tmp/:token", h.GetTemporaryLink)
	r.GET("/images/:id/tmp/:token/img", h.ServeTemporaryImage)

	// 以 X-Test-User 头模拟已认证的调用方
	fakeAuth := func(c *gin.Context) {
		for id, caller := range e.callers {
			if c.GetHeader("X-Test-User") == caller.Username {
				c.Set(middleware.ContextUserIDKey, id)
				c.Set(middleware.ContextCallerKey, caller)
				break
			}
		}
		c.Next()
	}
	g := r.Group("/api/v1/users/:user_id/images", fakeAuth, middleware.RequireOwnerOrAdmin("user_id"))
	g.GET("", h.ListImages)
	g.POST("", h.CreateImage)
	g.GET("/:id", h.GetImage)
	g.DELETE("/:id", h.DeleteImage)
	g.POST("/:id/generate_link", h.GenerateLink)

	e.router = r
	return e
}

func (e *env) user(t *testing.T, name string, keep, canLink bool, superuser bool, sizes ...[2]int) *models.User {
	t.Helper()
	ctx := context.Background()
	ids := make([]uint, 0, len(sizes))
	for _, s := range sizes {
		res, err := e.tiers.EnsureResolution(ctx, s[0], s[1])
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	p, err := e.tiers.CreateOrUpdate(ctx, tier.Input{Name: name + "-tier", KeepOriginal: keep, CanGenerateLink: canLink, ResolutionIDs: ids})
	require.NoError(t, err)

	u, err := e.users.CreateUser(ctx, name, "password", p.ID, superuser)
	require.NoError(t, err)
	u, err = e.users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	e.callers[u.ID] = access.FromUser(u)
	return u
}

func (e *env) do(req *http.Request, as string) *httptest.ResponseRecorder {
	if as != "" {
		req.Header.Set("X-Test-User", as)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, userID uint, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+itoa(userID)+"/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		common.Response
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Data
}

func (e *env) upload(t *testing.T, u *models.User) *ImageDTO {
	t.Helper()
	w := e.do(uploadRequest(t, u.ID, "img", pngBytes(t, 300, 200)), u.Username)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dto := decode[ImageDTO](t, w)
	return &dto
}

func TestCreateImageBasicTier(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "basic", false, false, false, [2]int{200, 200})

	dto := e.upload(t, u)
	assert.Nil(t, dto.Img)
	require.Len(t, dto.Thumbnails, 1)
	assert.Equal(t, 200, dto.Thumbnails[0].Width)
	assert.Equal(t, 133, dto.Thumbnails[0].Height)
	assert.True(t, strings.HasPrefix(dto.Thumbnails[0].URL, testBaseURL+"/media/uploads/"))

	w := e.do(jsonRequest(http.MethodPost, "/api/v1/users/"+itoa(u.ID)+"/images/"+itoa(dto.ID)+"/generate_link", `{"ttl":600}`), u.Username)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateImagePremiumTier(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "premium", true, false, false, [2]int{200, 200}, [2]int{400, 400})

	dto := e.upload(t, u)
	require.NotNil(t, dto.Img)
	assert.Len(t, dto.Thumbnails, 2)

	media := strings.TrimPrefix(*dto.Img, testBaseURL)
	w := e.do(httptest.NewRequest(http.MethodGet, media, nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestCreateImageValidation(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "alice", false, false, false)

	tests := []struct {
		name  string
		field string
		data  []byte
	}{
		{"wrong field", "file", pngBytes(t, 10, 10)},
		{"not an image", "img", []byte("hello, world")},
		{"too wide", "img", pngBytes(t, 1000, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(uploadRequest(t, u.ID, tt.field, tt.data), u.Username)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestImagesAreScopedToOwner(t *testing.T) {
	e := newEnv(t)
	alice := e.user(t, "alice", false, false, false, [2]int{100, 100})
	bob := e.user(t, "bob", false, false, false)
	admin := e.user(t, "admin", true, true, true)

	dto := e.upload(t, alice)
	path := "/api/v1/users/" + itoa(alice.ID) + "/images/" + itoa(dto.ID)

	assert.Equal(t, http.StatusForbidden, e.do(httptest.NewRequest(http.MethodGet, path, nil), bob.Username).Code)
	assert.Equal(t, http.StatusOK, e.do(httptest.NewRequest(http.MethodGet, path, nil), admin.Username).Code)

	// 图片存在，但不属于路径中的用户
	other := "/api/v1/users/" + itoa(bob.ID) + "/images/" + itoa(dto.ID)
	assert.Equal(t, http.StatusNotFound, e.do(httptest.NewRequest(http.MethodGet, other, nil), bob.Username).Code)

	w := e.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/"+itoa(alice.ID)+"/images", nil), alice.Username)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[ImageListResponse](t, w)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Images, 1)
	assert.Equal(t, dto.ID, list.Images[0].ID)
}

func TestDeleteImage(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "premium", true, false, false, [2]int{100, 100})
	dto := e.upload(t, u)
	path := "/api/v1/users/" + itoa(u.ID) + "/images/" + itoa(dto.ID)

	assert.Equal(t, http.StatusOK, e.do(httptest.NewRequest(http.MethodDelete, path, nil), u.Username).Code)
	assert.Equal(t, http.StatusNotFound, e.do(httptest.NewRequest(http.MethodGet, path, nil), u.Username).Code)

	media := strings.TrimPrefix(dto.Thumbnails[0].URL, testBaseURL)
	assert.Equal(t, http.StatusNotFound, e.do(httptest.NewRequest(http.MethodGet, media, nil), "").Code)
}

func TestGenerateLinkRequestValidation(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "enterprise", true, true, false)
	dto := e.upload(t, u)
	path := "/api/v1/users/" + itoa(u.ID) + "/images/" + itoa(dto.ID) + "/generate_link"

	for _, body := range []string{`{}`, `{"ttl":299}`, `{"ttl":30001}`, `not json`} {
		w := e.do(jsonRequest(http.MethodPost, path, body), u.Username)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestGenerateLinkTierCheckedBeforeTTL(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "premium", true, false, false)
	dto := e.upload(t, u)
	path := "/api/v1/users/" + itoa(u.ID) + "/images/" + itoa(dto.ID) + "/generate_link"

	for _, body := range []string{`{"ttl":300}`, `{"ttl":100}`, `{}`, `not json`} {
		w := e.do(jsonRequest(http.MethodPost, path, body), u.Username)
		assert.Equal(t, http.StatusForbidden, w.Code, body)
	}
}

func TestTemporaryLinkLifecycle(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "enterprise", true, true, false, [2]int{200, 200})
	dto := e.upload(t, u)

	w := e.do(jsonRequest(http.MethodPost, "/api/v1/users/"+itoa(u.ID)+"/images/"+itoa(dto.ID)+"/generate_link", `{"ttl":300}`), u.Username)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	issued := decode[LinkResponse](t, w)
	assert.Equal(t, e.now.Add(300*time.Second).Unix(), issued.ExpiresAt)
	require.True(t, strings.HasPrefix(issued.Link, testBaseURL+"/images/"+itoa(dto.ID)+"/tmp/"))

	linkPath := strings.TrimPrefix(issued.Link, testBaseURL)
	w = e.do(httptest.NewRequest(http.MethodGet, linkPath, nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	resolved := decode[TemporaryImageResponse](t, w)
	assert.Equal(t, issued.Link+"/img", resolved.Img)

	w = e.do(httptest.NewRequest(http.MethodGet, linkPath+"/img", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	converted, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.IsType(t, &stdimage.Paletted{}, converted)

	// 二值化文件不能绕过令牌直接访问
	direct := "/media/" + storage.ConvertedPath(u.ID, dto.ID)
	assert.Equal(t, http.StatusNotFound, e.do(httptest.NewRequest(http.MethodGet, direct, nil), "").Code)

	e.now = e.now.Add(301 * time.Second)
	w = e.do(httptest.NewRequest(http.MethodGet, linkPath, nil), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Expired")
	assert.Equal(t, http.StatusForbidden, e.do(httptest.NewRequest(http.MethodGet, linkPath+"/img", nil), "").Code)
}

func TestTemporaryLinkInvalid(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "enterprise", true, true, false)
	first := e.upload(t, u)
	second := e.upload(t, u)

	w := e.do(jsonRequest(http.MethodPost, "/api/v1/users/"+itoa(u.ID)+"/images/"+itoa(first.ID)+"/generate_link", `{"ttl":600}`), u.Username)
	require.Equal(t, http.StatusOK, w.Code)
	issued := decode[LinkResponse](t, w)
	token := issued.Link[strings.LastIndex(issued.Link, "/")+1:]

	tests := []struct {
		name string
		path string
	}{
		{"garbage token", "/images/" + itoa(first.ID) + "/tmp/garbage"},
		{"token for another image", "/images/" + itoa(second.ID) + "/tmp/" + token},
		{"bad id", "/images/abc/tmp/" + token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusNotFound, e.do(httptest.NewRequest(http.MethodGet, tt.path, nil), "").Code)
		})
	}
}

func TestServeMediaRejectsTraversal(t *testing.T) {
	e := newEnv(t)
	for _, p := range []string{"/media/../secret", "/media/other/file.png", "/media/uploads/1/img/missing.png"} {
		w := e.do(httptest.NewRequest(http.MethodGet, p, nil), "")
		assert.Equal(t, http.StatusNotFound, w.Code, p)
	}
}

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/anoixa/image-tiers/database/dbtest"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/database/repo/tiers"
	"github.com/anoixa/image-tiers/internal/account"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoRemover struct{ repo *accounts.Repository }

func (r repoRemover) DeleteUser(ctx context.Context, userID uint) error {
	return r.repo.DeleteUser(ctx, userID)
}

func newRouter(t *testing.T) (*gin.Engine, *tier.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	tierSvc := tier.NewService(db, nil, models.ResolutionBounds{MinWidth: 1, MaxWidth: 1000, MinHeight: 1, MaxHeight: 1000})
	accountsRepo := accounts.NewRepository(db.DB())
	h := NewHandler(tierSvc, account.NewService(accountsRepo, tiers.NewRepository(db.DB()), repoRemover{accountsRepo}, nil))

	r := gin.New()
	g := r.Group("/admin")
	g.GET("/tiers", h.ListTiers)
	g.POST("/tiers", h.CreateTier)
	g.GET("/tiers/:id", h.GetTier)
	g.PUT("/tiers/:id", h.UpdateTier)
	g.DELETE("/tiers/:id", h.DeleteTier)
	g.GET("/resolutions", h.ListResolutions)
	g.POST("/resolutions", h.CreateResolution)
	g.DELETE("/resolutions/:id", h.DeleteResolution)
	g.GET("/users", h.ListUsers)
	g.POST("/users", h.CreateUser)
	g.PUT("/users/:id/tier", h.SetUserTier)
	g.DELETE("/users/:id", h.DeleteUser)
	return r, tierSvc
}

func call(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func dataID(t *testing.T, w *httptest.ResponseRecorder) uint {
	t.Helper()
	var resp struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotZero(t, resp.Data.ID)
	return resp.Data.ID
}

func id(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func TestTierPolicyViolationIsRejected(t *testing.T) {
	r, tierSvc := newRouter(t)

	w := call(r, http.MethodPost, "/admin/tiers", `{"name":"Broken","keep_original":false,"can_generate_link":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "keep_original is false")

	list, err := tierSvc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTierLifecycle(t *testing.T) {
	r, _ := newRouter(t)

	w := call(r, http.MethodPost, "/admin/resolutions", `{"width":200,"height":200}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resID := dataID(t, w)

	w = call(r, http.MethodPost, "/admin/tiers", `{"name":"Premium","keep_original":true,"resolution_ids":[`+id(resID)+`]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tierID := dataID(t, w)
	assert.Contains(t, w.Body.String(), `"width":200`)

	w = call(r, http.MethodPut, "/admin/tiers/"+id(tierID), `{"name":"Premium","keep_original":false,"can_generate_link":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodPut, "/admin/tiers/"+id(tierID), `{"name":"Premium+","keep_original":true,"can_generate_link":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodGet, "/admin/tiers/"+id(tierID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Premium+"`)
	assert.Contains(t, w.Body.String(), `"can_generate_link":true`)

	w = call(r, http.MethodPost, "/admin/users", `{"username":"erin","password":"pw","tier_id":`+id(tierID)+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	userID := dataID(t, w)
	assert.NotContains(t, w.Body.String(), "password")

	assert.Equal(t, http.StatusConflict, call(r, http.MethodDelete, "/admin/tiers/"+id(tierID), "").Code)

	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/admin/users/"+id(userID), "").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/admin/tiers/"+id(tierID), "").Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/admin/tiers/"+id(tierID), "").Code)
}

func TestResolutionRules(t *testing.T) {
	r, _ := newRouter(t)

	require.Equal(t, http.StatusCreated, call(r, http.MethodPost, "/admin/resolutions", `{"width":400,"height":300}`).Code)
	assert.Equal(t, http.StatusConflict, call(r, http.MethodPost, "/admin/resolutions", `{"width":400,"height":300}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/admin/resolutions", `{"width":4000,"height":300}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/admin/resolutions", `{"width":400}`).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodDelete, "/admin/resolutions/999", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodDelete, "/admin/resolutions/abc", "").Code)
}

func TestUserManagement(t *testing.T) {
	r, tierSvc := newRouter(t)
	ctx := context.Background()
	basic, err := tierSvc.CreateOrUpdate(ctx, tier.Input{Name: "Basic"})
	require.NoError(t, err)
	ent, err := tierSvc.CreateOrUpdate(ctx, tier.Input{Name: "Enterprise", KeepOriginal: true, CanGenerateLink: true})
	require.NoError(t, err)

	w := call(r, http.MethodPost, "/admin/users", `{"username":"frank","password":"pw","tier_id":`+id(basic.ID)+`}`)
	require.Equal(t, http.StatusCreated, w.Code)
	userID := dataID(t, w)

	assert.Equal(t, http.StatusConflict, call(r, http.MethodPost, "/admin/users", `{"username":"frank","password":"pw","tier_id":`+id(basic.ID)+`}`).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPost, "/admin/users", `{"username":"gina","password":"pw","tier_id":999}`).Code)

	w = call(r, http.MethodPut, "/admin/users/"+id(userID)+"/tier", `{"tier_id":`+id(ent.ID)+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"name":"Enterprise"`)

	w = call(r, http.MethodGet, "/admin/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"frank"`)

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPut, "/admin/users/999/tier", `{"tier_id":`+id(ent.ID)+`}`).Code)
}

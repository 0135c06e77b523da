package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-tiers/api/middleware"
	"github.com/anoixa/image-tiers/database/dbtest"
	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTest 初始化测试环境：一个 Premium 用户与完整的认证链路
func setupTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t).DB()
	tier := &models.TierPolicy{Name: "Premium", KeepOriginal: true}
	require.NoError(t, db.Create(tier).Error)
	repo := accounts.NewRepository(db)
	_, err := repo.CreateUser(context.Background(), "testuser", "testpassword", tier.ID, false)
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(strings.Repeat("k", auth.MinSecretLength), 30*time.Minute)
	require.NoError(t, err)
	loginService := auth.NewLoginService(repo, jwtService)
	authn := middleware.NewAuthenticator(jwtService, loginService, auth.NewIdentityResolver(repo, nil, 0))

	h := NewLoginHandler(loginService)
	router := gin.New()
	router.POST("/login", h.LoginHandlerFunc)
	router.GET("/me", authn.Middleware(), h.MeHandlerFunc)
	return router
}

func postLogin(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginHandler_BadRequests(t *testing.T) {
	router := setupTest(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "invalid json"},
		{"missing password", `{"username":"testuser"}`},
		{"empty body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, postLogin(router, tt.body).Code)
		})
	}
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	router := setupTest(t)
	w := postLogin(router, `{"username":"testuser","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postLogin(router, `{"username":"ghost","password":"testpassword"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginThenMe(t *testing.T) {
	router := setupTest(t)

	w := postLogin(router, `{"username":"testuser","password":"testpassword"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.Data.TokenType)
	assert.InDelta(t, (30 * time.Minute).Seconds(), float64(resp.Data.ExpiresIn), 5)
	require.NotEmpty(t, resp.Data.AccessToken)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Data.AccessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"testuser"`)
	assert.Contains(t, w.Body.String(), `"name":"Premium"`)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.SetBasicAuth("testuser", "testpassword")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

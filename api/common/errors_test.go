package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anoixa/image-tiers/database/models"
	"github.com/anoixa/image-tiers/database/repo/images"
	imagesvc "github.com/anoixa/image-tiers/internal/image"
	"github.com/anoixa/image-tiers/internal/link"
	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/anoixa/image-tiers/storage"
	"github.com/anoixa/image-tiers/utils/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"expired", link.ErrTokenExpired, http.StatusForbidden},
		{"invalid token", fmt.Errorf("%w: subject mismatch", link.ErrTokenInvalid), http.StatusNotFound},
		{"ttl", fmt.Errorf("%w: 10", link.ErrTTLOutOfRange), http.StatusBadRequest},
		{"policy", models.ErrPolicyInvariantViolation, http.StatusBadRequest},
		{"validation", &validator.ValidationError{Field: "img", Reason: "bad"}, http.StatusBadRequest},
		{"no original", imagesvc.ErrNoOriginal, http.StatusForbidden},
		{"image missing", images.ErrImageNotFound, http.StatusNotFound},
		{"file missing", storage.ErrNotFound, http.StatusNotFound},
		{"tier in use", fmt.Errorf("%w: 2 user(s)", tier.ErrTierInUse), http.StatusConflict},
		{"processing", fmt.Errorf("%w: %w", imagesvc.ErrProcessing, errors.New("disk")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestExpiredMessage(t *testing.T) {
	_, msg := StatusFor(link.ErrTokenExpired)
	assert.Equal(t, "Expired", msg)
}

func TestUnknownErrorIsNotLeaked(t *testing.T) {
	_, msg := StatusFor(errors.New("dial tcp 10.0.0.1: refused"))
	assert.Equal(t, "Internal server error", msg)
}

func TestRespondErrorAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondErrorAbort(c, http.StatusTooManyRequests, "slow down")

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "slow down", resp.Msg)
}

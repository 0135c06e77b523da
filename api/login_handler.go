package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/api/middleware"
	"github.com/anoixa/image-tiers/internal/auth"
	"github.com/anoixa/image-tiers/utils"
	"github.com/anoixa/image-tiers/utils/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginHandler 登录处理器
type LoginHandler struct {
	loginService *auth.LoginService
}

// NewLoginHandler 使用 LoginService 创建登录处理器
func NewLoginHandler(loginService *auth.LoginService) *LoginHandler {
	return &LoginHandler{
		loginService: loginService,
	}
}

type userAuthRequestBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// LoginHandlerFunc user login
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  userAuthRequestBody  true  "Credentials"
// @Success      200  {object}  common.Response{data=loginResponse}
// @Failure      401  {object}  common.Response
// @Router       /auth/login [post]
func (h *LoginHandler) LoginHandlerFunc(context *gin.Context) {
	var req userAuthRequestBody
	if err := context.ShouldBindJSON(&req); err != nil {
		common.RespondError(context, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.loginService.Login(context.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.LogIfDevf("[Login] rejected credentials for %s", utils.SanitizeLogUsername(req.Username))
			common.RespondError(context, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		logger.L.Error("login failed", zap.Error(err))
		common.RespondError(context, http.StatusInternalServerError, "Internal server error")
		return
	}

	common.RespondSuccessMessage(context, "Login successful", loginResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   int64(time.Until(result.AccessTokenExpiry).Round(time.Second).Seconds()),
		TokenType:   "Bearer",
	})
}

// MeHandlerFunc 当前调用方身份与等级
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Success      200  {object}  common.Response{data=access.Caller}
// @Security     BearerAuth
// @Router       /me [get]
func (h *LoginHandler) MeHandlerFunc(context *gin.Context) {
	caller, ok := middleware.CallerFrom(context)
	if !ok {
		common.RespondError(context, http.StatusUnauthorized, "Not authenticated")
		return
	}
	common.RespondSuccess(context, caller)
}

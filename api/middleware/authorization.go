package middleware

import (
	"net/http"
	"strconv"

	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/internal/access"
	"github.com/gin-gonic/gin"
)

// ContextOwnerIDKey 路径中 :user_id 解析后的值
const ContextOwnerIDKey = "owner_id"

// Authorize 检查context中的认证类型是否在允许的列表中
func Authorize(allowedTypes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authType := c.GetString(AuthTypeKey)
		if authType == "" {
			common.RespondErrorAbort(c, http.StatusForbidden, "Access denied. Not authenticated.")
			return
		}

		for _, allowed := range allowedTypes {
			if authType == allowed {
				c.Next()
				return
			}
		}

		common.RespondErrorAbort(c, http.StatusForbidden, "Access denied. You do not have permission to access this resource with this authentication method.")
	}
}

// RequireSuperuser 仅允许管理员
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			common.RespondErrorAbort(c, http.StatusForbidden, "Access denied. Not authenticated.")
			return
		}
		if !caller.Superuser {
			common.RespondErrorAbort(c, http.StatusForbidden, "Access denied. Administrator privileges required.")
			return
		}
		c.Next()
	}
}

// RequireOwnerOrAdmin 路径参数 param 指定的用户必须是调用方本人，管理员不受限
func RequireOwnerOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil || ownerID == 0 {
			common.RespondErrorAbort(c, http.StatusBadRequest, "Invalid user id")
			return
		}

		caller, ok := CallerFrom(c)
		if !ok || !access.OwnerOrAdmin(caller, uint(ownerID)) {
			common.RespondErrorAbort(c, http.StatusForbidden, "Access denied.")
			return
		}

		c.Set(ContextOwnerIDKey, uint(ownerID))
		c.Next()
	}
}

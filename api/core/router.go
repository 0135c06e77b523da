package core

import (
	"github.com/anoixa/image-tiers/api"
	"github.com/anoixa/image-tiers/api/common"
	"github.com/anoixa/image-tiers/api/handler/admin"
	handlerImages "github.com/anoixa/image-tiers/api/handler/images"
	"github.com/anoixa/image-tiers/api/middleware"
	"github.com/anoixa/image-tiers/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// limiters 路由使用的限流器
type limiters struct {
	auth   *middleware.IPRateLimiter
	api    *middleware.IPRateLimiter
	upload *middleware.ConcurrencyLimiter
}

// registerRoutes 注册所有路由
func registerRoutes(router *gin.Engine, deps *ServerDependencies, l limiters) {
	cfg := deps.Config
	imageHandler := handlerImages.NewHandler(deps.Pipeline, deps.Images, deps.UploadLimits(), cfg.BaseURL())
	adminHandler := admin.NewHandler(deps.Tiers, deps.Accounts)
	loginHandler := api.NewLoginHandler(deps.Login)
	authn := middleware.NewAuthenticator(deps.JWT, deps.Login, deps.Identities)

	registerBasicRoutes(router, deps)

	// 公共访问
	router.GET("/media/*path", imageHandler.ServeMedia)
	linkGroup := router.Group("/images/:id/tmp/:token")
	linkGroup.Use(l.api.Middleware())
	{
		linkGroup.GET("", imageHandler.GetTemporaryLink)        // GET /images/{id}/tmp/{token}
		linkGroup.GET("/img", imageHandler.ServeTemporaryImage) // GET /images/{id}/tmp/{token}/img
	}

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		authGroup := apiGroup.Group("/v1/auth")
		authGroup.Use(l.auth.Middleware())
		{
			authGroup.POST("/login", loginHandler.LoginHandlerFunc) // POST /api/v1/auth/login
		}

		v1 := apiGroup.Group("/v1")
		v1.Use(l.api.Middleware())
		v1.Use(authn.Middleware())
		v1.Use(middleware.Authorize(middleware.AuthTypeJWT, middleware.AuthTypeBasic))
		{
			v1.GET("/me", loginHandler.MeHandlerFunc) // GET /api/v1/me

			imagesGroup := v1.Group("/users/:user_id/images")
			imagesGroup.Use(middleware.RequireOwnerOrAdmin("user_id"))
			{
				imagesGroup.GET("", imageHandler.ListImages) // GET /api/v1/users/{user_id}/images
				imagesGroup.POST("", l.upload.MiddlewareWithBlock(uploadQueueTimeout), imageHandler.CreateImage)
				imagesGroup.GET("/:id", imageHandler.GetImage)                    // GET /api/v1/users/{user_id}/images/{id}
				imagesGroup.DELETE("/:id", imageHandler.DeleteImage)              // DELETE /api/v1/users/{user_id}/images/{id}
				imagesGroup.POST("/:id/generate_link", imageHandler.GenerateLink) // POST /api/v1/users/{user_id}/images/{id}/generate_link
			}

			registerAdminRoutes(v1, adminHandler)
		}
	}
}

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *ServerDependencies) {
	healthHandler := NewHealthHandler(deps.DB, deps.Cache, deps.Storage)
	router.GET("/health", healthHandler.Handle)

	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
			"build":   config.BuildInfo(),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// registerAdminRoutes 注册管理员路由
func registerAdminRoutes(v1 *gin.RouterGroup, h *admin.Handler) {
	adminGroup := v1.Group("/admin")
	adminGroup.Use(middleware.RequireSuperuser())
	{
		tiersGroup := adminGroup.Group("/tiers")
		{
			tiersGroup.GET("", h.ListTiers)         // GET /api/v1/admin/tiers
			tiersGroup.POST("", h.CreateTier)       // POST /api/v1/admin/tiers
			tiersGroup.GET("/:id", h.GetTier)       // GET /api/v1/admin/tiers/{id}
			tiersGroup.PUT("/:id", h.UpdateTier)    // PUT /api/v1/admin/tiers/{id}
			tiersGroup.DELETE("/:id", h.DeleteTier) // DELETE /api/v1/admin/tiers/{id}
		}

		resolutionsGroup := adminGroup.Group("/resolutions")
		{
			resolutionsGroup.GET("", h.ListResolutions)         // GET /api/v1/admin/resolutions
			resolutionsGroup.POST("", h.CreateResolution)       // POST /api/v1/admin/resolutions
			resolutionsGroup.DELETE("/:id", h.DeleteResolution) // DELETE /api/v1/admin/resolutions/{id}
		}

		usersGroup := adminGroup.Group("/users")
		{
			usersGroup.GET("", h.ListUsers)            // GET /api/v1/admin/users
			usersGroup.POST("", h.CreateUser)          // POST /api/v1/admin/users
			usersGroup.PUT("/:id/tier", h.SetUserTier) // PUT /api/v1/admin/users/{id}/tier
			usersGroup.DELETE("/:id", h.DeleteUser)    // DELETE /api/v1/admin/users/{id}
		}
	}
}

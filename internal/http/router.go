package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/mishel123hanna/sign-language/internal/config"
	"github.com/mishel123hanna/sign-language/internal/http/handler"
	httpmiddleware "github.com/mishel123hanna/sign-language/internal/http/middleware"
	"github.com/mishel123hanna/sign-language/internal/middleware"
)

const staticVideoPath = "/static/videos"

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth      *handler.AuthHandler
	Translate *handler.TranslateHandler
	Stream    *handler.StreamHandler
}

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, h Handlers, authMiddleware *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static(staticVideoPath, cfg.VideoDir)

	api := r.Group(cfg.APIPrefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.GET("/refresh_token", authMiddleware.RequireRefresh(), h.Auth.Refresh)
		authGroup.POST("/logout", authMiddleware.RequireAccess(), h.Auth.Logout)
		authGroup.GET("/me", authMiddleware.RequireAccess(), h.Auth.Me)
	}

	api.POST("/generate-video/", authMiddleware.RequireAccess(), h.Translate.GenerateVideo)
	api.GET("/download-video/:filename", h.Translate.DownloadVideo)
	api.GET("/user-history/", authMiddleware.RequireAccess(), h.Translate.History)
	api.GET("/available-signs/", h.Translate.AvailableSigns)

	// The socket authenticates itself after the upgrade.
	api.GET("/ws/translate", h.Stream.Translate)
	api.GET("/ws-docs", h.Stream.Docs)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Route not found."})
	})

	return r
}

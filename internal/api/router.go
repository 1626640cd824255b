package api

import (
	"log/slog"

	"focusroom/internal/api/handlers"
	"focusroom/internal/api/middleware"
	"focusroom/internal/core"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Service core.FocusService
	Clock   core.Clock // optional; used for grant remaining time
	APIKey  string
	Version string
	Logger  *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.NoiseFilter())
	router.Use(middleware.ContentType())

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler(config.Version)
	router.GET("/health", healthHandler.GetHealth)

	v1 := router.Group("/v1")
	v1.Use(middleware.APIKeyAuth(config.APIKey))
	{
		sessionHandler := handlers.NewSessionHandler(config.Service, logger)
		v1.POST("/session", sessionHandler.StartSession)
		v1.GET("/session", sessionHandler.GetSession)
		v1.POST("/session/pause", sessionHandler.PauseSession)
		v1.POST("/session/resume", sessionHandler.ResumeSession)
		v1.POST("/session/stop", sessionHandler.StopSession)
		v1.POST("/session/complete", sessionHandler.CompleteSession)

		navigationHandler := handlers.NewNavigationHandler(config.Service, config.Clock, logger)
		v1.POST("/navigation/check", navigationHandler.CheckNavigation)
		v1.GET("/navigation/last-blocked", navigationHandler.GetLastBlocked)
		v1.POST("/access-grants", navigationHandler.GrantAccess)

		settingsHandler := handlers.NewSettingsHandler(config.Service, logger)
		v1.GET("/settings", settingsHandler.GetSettings)
		v1.PUT("/settings", settingsHandler.UpdateSettings)
		v1.GET("/catalog/stats", settingsHandler.GetCatalogStats)
		v1.GET("/history", settingsHandler.ListHistory)
	}

	return router
}

package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/milestone-tracker/internal/api/handlers"
	"github.com/jstittsworth/milestone-tracker/internal/api/middleware"
	"github.com/jstittsworth/milestone-tracker/internal/services"
	"github.com/jstittsworth/milestone-tracker/pkg/config"
)

// Dependencies are the services the HTTP surface is built on
type Dependencies struct {
	Refresher *services.Refresher
	Cache     handlers.CacheInvalidator
	Hub       *services.WebSocketHub
	Checks    map[string]handlers.Check
}

// NewRouter builds the engine with middleware, health probes, the websocket
// endpoint and the /api/v1 routes
func NewRouter(cfg *config.Config, deps Dependencies, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	healthHandler := handlers.NewHealthHandler(deps.Checks)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Refresher, cfg.CorsOrigins, logger)
	router.GET("/ws", wsHandler.HandleWebSocket)

	SetupRoutes(router.Group("/api/v1"), cfg, deps, logger)

	return router
}

func SetupRoutes(group *gin.RouterGroup, cfg *config.Config, deps Dependencies, logger *logrus.Logger) {
	statusHandler := handlers.NewStatusHandler(deps.Refresher, deps.Cache, logger)

	group.GET("/status", statusHandler.GetStatus)
	group.GET("/status/history", statusHandler.GetHistory)
	group.GET("/schedule", statusHandler.GetSchedule)

	admin := group.Group("")
	admin.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		admin.POST("/refresh", statusHandler.ForceRefresh)
	}
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/gafferbot/gaffer/internal/api/handlers"
	"github.com/gafferbot/gaffer/internal/api/middleware"
	"github.com/gafferbot/gaffer/internal/api/websocket"
	"github.com/gafferbot/gaffer/internal/repository"
	"github.com/gafferbot/gaffer/internal/services"
	"github.com/gafferbot/gaffer/pkg/config"
	"github.com/gafferbot/gaffer/pkg/logger"
)

// NewRouter wires the read-only HTTP surface and the websocket hub.
func NewRouter(cfg *config.Config, repo repository.Repository, live handlers.LiveSource,
	cache *services.CacheService, hub *websocket.Hub, modelVersion string) *gin.Engine {

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.GetLogger()))

	h := handlers.NewHandler(cfg, repo, live, cache, modelVersion)

	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/squad", h.GetCurrentSquad)
		v1.GET("/decisions/latest", h.GetLatestDecision)
		v1.GET("/decisions/:gameweek", h.GetDecision)
		v1.GET("/players/:id", h.GetPlayer)
		v1.GET("/players/:id/signals", h.GetSignals)
		v1.GET("/predictions/:gameweek", h.GetPredictions)
		v1.GET("/live/:gameweek", h.GetLiveSnapshot)
		v1.GET("/fixtures", h.GetFixtures)
	}

	if cfg.EnableWebsocket && hub != nil {
		router.GET("/ws", hub.HandleConnection)
	}

	return router
}

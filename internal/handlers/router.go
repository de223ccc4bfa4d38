package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/middleware"
	"github.com/stwalsh4118/propsearch/internal/repository"
	"github.com/stwalsh4118/propsearch/internal/services"
)

// RouterDeps are the collaborators the HTTP surface is built from.
// DB and History are nil when search history is disabled.
type RouterDeps struct {
	Log         *logger.Logger
	Env         string
	CORSOrigins []string
	DB          Pinger
	History     repository.HistoryRepository
	Search      services.SearchService
	Sessions    services.SessionManager
}

// NewRouter registers middleware and routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Log))
	router.Use(middleware.Recovery(deps.Log))
	router.Use(middleware.CORS(deps.CORSOrigins))

	healthHandler := NewHealthHandler(deps.DB, deps.Env, deps.Search.BaseURL())
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	searchHandler := NewSearchHandler(deps.Search)
	sessionHandler := NewSessionHandler(deps.Sessions)
	historyHandler := NewHistoryHandler(deps.History)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", healthHandler.Info)
		v1.POST("/search", searchHandler.Search)
		v1.GET("/searches/history", historyHandler.Recent)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.Create)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.DELETE("/:id", sessionHandler.Delete)
			sessions.POST("/:id/searches", sessionHandler.Submit)
			sessions.GET("/:id/notifications", sessionHandler.Notifications)
		}
	}

	return router
}

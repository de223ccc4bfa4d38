package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/propsearch/internal/config"
	"github.com/stwalsh4118/propsearch/internal/database"
	"github.com/stwalsh4118/propsearch/internal/fixture"
	"github.com/stwalsh4118/propsearch/internal/handlers"
	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/repository"
	"github.com/stwalsh4118/propsearch/internal/search"
	"github.com/stwalsh4118/propsearch/internal/services"
	"github.com/stwalsh4118/propsearch/internal/version"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	baseURL := cfg.BaseURL()
	log.Info("Starting property search API", map[string]interface{}{
		"version":     version.Version,
		"commit":      version.GitCommit,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"platform":    cfg.Platform.OS,
		"emulator":    cfg.Platform.IsEmulator,
		"upstream":    baseURL,
	})

	payload, err := fixture.Load(cfg.Fixture.Path)
	if err != nil {
		log.Fatal("Failed to load fixture", err, map[string]interface{}{
			"path": cfg.Fixture.Path,
		})
	}

	// Search history is optional; without it the pipeline runs statelessly.
	ctx := context.Background()
	var (
		db      *database.Database
		pinger  handlers.Pinger
		history repository.HistoryRepository
	)
	if cfg.Database.Enabled {
		db, err = database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", err, map[string]interface{}{
				"host": cfg.Database.Host,
				"port": cfg.Database.Port,
				"name": cfg.Database.Name,
			})
		}
		defer db.Close()

		log.Info("Database connection established", map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"database": cfg.Database.Name,
			"pool_min": cfg.Database.PoolMin,
			"pool_max": cfg.Database.PoolMax,
		})

		history = repository.NewHistoryRepository(db)
		if err := history.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to prepare search history schema", err, nil)
		}
		pinger = db
	}

	// Initialize the search pipeline
	builder := search.NewBuilder(cfg.BuilderConfig(), log)
	executor := search.NewExecutor(cfg.ExecutorConfig(payload), log)
	searchService := services.NewSearchService(builder, executor, history, baseURL, log)
	sessionManager := services.NewSessionManager(searchService, cfg.Search.SessionTTL, log)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		Log:         log,
		Env:         cfg.Server.Env,
		CORSOrigins: cfg.CORS.Origins,
		DB:          pinger,
		History:     history,
		Search:      searchService,
		Sessions:    sessionManager,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	// Abandon in-flight session searches before the pool closes.
	sessionManager.Close()

	log.Info("Server exited", nil)
}

// Package api exposes the harmonization service over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ophtha-harmonizer/internal/domain"
	"github.com/ophtha-harmonizer/internal/middleware"
)

// Server represents the HTTP server.
type Server struct {
	configManager domain.ConfigManager
	loader        domain.DatasetLoader
	pipeline      domain.Pipeline
	publisher     domain.ReportPublisher
	repository    domain.RecordRepository
	log           *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates an HTTP server. The publisher may be nil when the report
// cache is disabled, and the repository may be nil when PostgreSQL persistence
// is disabled; the corresponding endpoints then return 404.
func NewServer(configManager domain.ConfigManager, loader domain.DatasetLoader, pipeline domain.Pipeline, publisher domain.ReportPublisher, repository domain.RecordRepository, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(cfg.Server.WriteTimeout))

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		router.Use(limiter.Middleware())
	}

	server := &Server{
		configManager: configManager,
		loader:        loader,
		pipeline:      pipeline,
		publisher:     publisher,
		repository:    repository,
		log:           logger,
		router:        router,
	}

	server.setupRoutes()
	return server
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/harmonize", s.handleHarmonize)
		v1.GET("/datasets", s.handleListDatasets)
		v1.GET("/datasets/:dataset/records", s.handleListRecords)
		v1.GET("/records/:id", s.handleGetRecord)
		v1.DELETE("/records/:id", s.handleDeleteRecord)
		v1.GET("/reports/:dataset", s.handleGetReport)
		v1.GET("/stats", s.handleGetStatistics)
		v1.POST("/pipeline/run", s.handlePipelineRun)
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	apiErr := domain.APIErrorFrom(err)
	c.JSON(apiErr.Status, gin.H{
		"code":           apiErr.Code,
		"message":        apiErr.Message,
		"correlation_id": c.GetString("correlation_id"),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"datasets":  len(s.pipeline.Datasets()),
	})
}

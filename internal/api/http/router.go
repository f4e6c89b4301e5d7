// Package http wires the gin HTTP API: generation endpoints, model
// inspection, health probes, and the middleware chain.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/pixelforge/internal/api/http/handler"
	"github.com/pixelforge/pixelforge/internal/api/http/middleware"
	"github.com/pixelforge/pixelforge/internal/generation"
	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/observability/metrics"
	"github.com/pixelforge/pixelforge/internal/orchestration"
)

// RouterConfig defines HTTP server construction options
type RouterConfig struct {
	// ListenAddr for the HTTP server
	ListenAddr string

	// Production switches gin to release mode
	Production bool

	// RequestTimeout bounds non-streaming handlers
	RequestTimeout time.Duration
}

// Router assembles the HTTP API on a gin engine
type Router struct {
	engine *gin.Engine
	server *http.Server
	logger logging.Logger

	generateHandler *handler.GenerateHandler
	modelHandler    *handler.ModelHandler
	healthHandler   *handler.HealthHandler
}

// NewRouter builds the HTTP API around the generation service and
// orchestration manager
func NewRouter(
	cfg RouterConfig,
	logger logging.Logger,
	collector *metrics.Collector,
	service *generation.Service,
	manager *orchestration.Manager,
) *Router {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:          engine,
		logger:          logger,
		generateHandler: handler.NewGenerateHandler(service, logger),
		modelHandler:    handler.NewModelHandler(manager, logger),
		healthHandler:   handler.NewHealthHandler(manager),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logging(logger),
	)

	r.setupRoutes(collector)

	// WriteTimeout stays unset so streaming responses are not cut off
	r.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
	}

	return r
}

func (r *Router) setupRoutes(collector *metrics.Collector) {
	health := r.engine.Group("/health")
	{
		health.GET("/live", r.healthHandler.Liveness)
		health.GET("/ready", r.healthHandler.Readiness)
	}

	r.engine.GET("/metrics", gin.WrapH(collector.Handler()))

	v1 := r.engine.Group("/api/v1")
	{
		v1.POST("/generate", r.generateHandler.Generate)
		v1.POST("/generate/stream", r.generateHandler.GenerateStream)

		models := v1.Group("/models")
		{
			models.GET("", r.modelHandler.ListModels)
			models.GET("/ranking", r.modelHandler.GetRanking)
			models.GET("/:id/status", r.modelHandler.GetStatus)
			models.GET("/:id/metrics", r.modelHandler.GetMetrics)
		}
	}
}

// Run starts the HTTP server; it blocks until the listener fails or the
// server is shut down
func (r *Router) Run() error {
	r.logger.Info("http server listening", logging.String("addr", r.server.Addr))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires
func (r *Router) Shutdown(ctx context.Context) error {
	r.logger.Info("http server shutting down")
	return r.server.Shutdown(ctx)
}

// Engine exposes the gin engine for tests
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

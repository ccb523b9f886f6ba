package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/config"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/middleware"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	handlers *handlers.Handlers
	metrics  *metrics.Metrics
	http     *http.Server
	logger   *logging.LoggerV2
}

func New(h *handlers.Handlers, m *metrics.Metrics, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		metrics:  m,
		logger:   logging.NewLoggerV2("server"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.AccessLog(logging.NewLoggerV2("http")))
	s.router.Use(middleware.Instrument(s.metrics))
}

func (s *Server) setupRoutes() {
	s.router.SetHTMLTemplate(handlers.Templates())
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	s.handlers.RegisterRoutes(s.router)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.http.Addr})
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/superide/super-ide/backend/internal/api/http"
	"github.com/superide/super-ide/backend/internal/api/middleware"
	"github.com/superide/super-ide/backend/internal/api/ws"
	"github.com/superide/super-ide/backend/internal/domain/service"
	"github.com/superide/super-ide/backend/internal/infrastructure/config"
	"github.com/superide/super-ide/backend/internal/infrastructure/logging"
	"github.com/superide/super-ide/backend/internal/infrastructure/monitoring"
	"github.com/superide/super-ide/backend/internal/providers/terminal"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router   *gin.Engine
	srv      *http.Server
	manager  *terminal.Manager
	registry *service.Registry
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics

	reapCancel context.CancelFunc
}

// New assembles a server from configuration.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
	}

	logger.Info("Initializing Super IDE backend",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	metrics := monitoring.NewMetrics()

	manager := terminal.NewManager(terminal.Config{
		Shell:            cfg.Terminal.Shell,
		MaxSessions:      cfg.Terminal.MaxSessions,
		BufferBytes:      cfg.Terminal.BufferBytes,
		SubscriberBuffer: cfg.Terminal.SubscriberBuffer,
		KillGrace:        cfg.Terminal.KillGrace,
		ReapGrace:        cfg.Terminal.ReapGrace,
		ReapInterval:     cfg.Terminal.ReapInterval,
	}, logger).WithMetrics(metrics)

	executor := terminal.NewExecutor(terminal.ExecConfig{
		DefaultTimeout:  cfg.Exec.DefaultTimeout,
		MaxTimeout:      cfg.Exec.MaxTimeout,
		MaxCaptureBytes: cfg.Exec.MaxCaptureBytes,
	}, logger).WithMetrics(metrics)

	registry := service.NewRegistry()
	if err := registry.Register(terminal.NewProvider(manager, executor)); err != nil {
		return nil, fmt.Errorf("failed to register terminal provider: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(manager, executor, registry)
	wsHandler := ws.NewHandler(manager, logger, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// Terminal sessions
	router.POST("/terminal/sessions", handlers.CreateSession)
	router.GET("/terminal/sessions", handlers.ListSessions)
	router.GET("/terminal/sessions/:id", handlers.GetSession)
	router.GET("/terminal/sessions/:id/output", handlers.SessionOutput)
	router.POST("/terminal/sessions/:id/input", handlers.SessionInput)
	router.POST("/terminal/sessions/:id/resize", handlers.SessionResize)
	router.PATCH("/terminal/sessions/:id", handlers.RenameSession)
	router.DELETE("/terminal/sessions/:id", handlers.KillSession)
	router.POST("/terminal/reap", handlers.ReapSessions)

	// One-off command execution
	router.POST("/exec", handlers.Exec)

	// Service registry
	router.GET("/services", handlers.ListServices)
	router.POST("/services/execute", handlers.ExecuteService)

	// WebSocket terminal transport
	router.GET("/ws/terminal", wsHandler.HandleConnection)

	return &Server{
		router:   router,
		manager:  manager,
		registry: registry,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and the background reap loop, blocking
// until the listener stops.
func (s *Server) Run() error {
	reapCtx, cancel := context.WithCancel(context.Background())
	s.reapCancel = cancel
	go s.manager.Run(reapCtx)

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Server listening", zap.String("addr", addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the listener down and terminates every session so no
// shell process outlives the server.
func (s *Server) Close() error {
	if s.reapCancel != nil {
		s.reapCancel()
	}

	var err error
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = s.srv.Shutdown(ctx)
	}

	s.manager.Close()
	s.logger.Info("Server stopped")
	return err
}

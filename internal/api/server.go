package api

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xuminwlt/j360-idgen/internal/api/handlers"
	"github.com/xuminwlt/j360-idgen/internal/api/middleware"
	"github.com/xuminwlt/j360-idgen/internal/config"
	"github.com/xuminwlt/j360-idgen/internal/events"
	"github.com/xuminwlt/j360-idgen/internal/idpool"
	_ "github.com/xuminwlt/j360-idgen/internal/metrics" // Register custom Prometheus metrics
)

var (
	promMiddlewareOnce sync.Once
	promMiddleware     *fiberprometheus.FiberPrometheus
)

// Server represents the HTTP server.
type Server struct {
	app    *fiber.App
	config *config.Config
	pools  *idpool.Manager
	events *events.Broker
}

// NewServer creates a new HTTP server around a pool manager. The broker
// should be the same one the manager publishes to, so the event stream
// carries the pools' lifecycle events.
func NewServer(cfg *config.Config, pools *idpool.Manager, broker *events.Broker) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Identifier Pool Agent",
		ServerHeader:          "idpool-agent",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler,
		StrictRouting:         false, // /foo and /foo/ are the same
	})

	server := &Server{
		app:    app,
		config: cfg,
		pools:  pools,
		events: broker,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// EventBroker returns the event broker for publishing events.
func (s *Server) EventBroker() *events.Broker {
	return s.events
}

// App returns the underlying Fiber app for testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// Request ID
	s.app.Use(requestid.New())

	// Recovery from panics
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: s.config.Server.Debug,
	}))

	// Prometheus metrics - use sync.Once to prevent duplicate registration in tests
	promMiddlewareOnce.Do(func() {
		promMiddleware = fiberprometheus.NewWithRegistry(prometheus.DefaultRegisterer.(*prometheus.Registry), "idpool_agent", "", "", nil)
		promMiddleware.SetSkipPaths([]string{"/health", "/ready", "/metrics"})
	})
	s.app.Use(promMiddleware.Middleware)
	// Use standard prometheus handler to expose all metrics (including custom ones)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,HEAD,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Logging
	s.app.Use(middleware.Logger("/health", "/ready", "/metrics"))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health checks (no pool interaction)
	s.app.Get("/health", handlers.HealthCheck)
	s.app.Get("/ready", handlers.ReadyCheck(s.pools))

	// WebSocket event stream
	s.app.Use("/v1/events", handlers.WebSocketUpgrade)
	s.app.Get("/v1/events/stream", handlers.EventStream(s.events))

	// API v1 routes
	v1 := s.app.Group("/v1")

	v1.Get("/pools", handlers.ListPools(s.pools))

	pool := v1.Group("/pools/:domain/:key")
	pool.Post("/borrow", handlers.Borrow(s.pools))
	pool.Post("/giveback", handlers.Giveback(s.pools))
	pool.Post("/consume", handlers.Consume(s.pools))
	pool.Get("/stats", handlers.PoolStats(s.pools))
	pool.Get("/config", handlers.GetPoolConfig(s.pools))
	pool.Patch("/config", handlers.UpdatePoolConfig(s.pools))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	slog.Info("server listening", "address", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	// Close event broker first so streaming connections drain
	if s.events != nil {
		s.events.Close()
	}
	return s.app.ShutdownWithTimeout(30 * time.Second)
}

// errorHandler handles errors globally.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	slog.Error("request error",
		"error", err,
		"status", code,
		"path", c.Path(),
		"method", c.Method(),
	)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"message": message,
			"type":    "ServerError",
			"code":    code,
		},
	})
}

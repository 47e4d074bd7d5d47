package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xuminwlt/j360-idgen/internal/allocator"
	"github.com/xuminwlt/j360-idgen/internal/api"
	"github.com/xuminwlt/j360-idgen/internal/config"
	"github.com/xuminwlt/j360-idgen/internal/events"
	"github.com/xuminwlt/j360-idgen/internal/idpool"
	"github.com/xuminwlt/j360-idgen/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Set log level from config
	if cfg.Server.Debug {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	slog.Info("starting identifier pool agent",
		"version", cfg.Server.Version,
		"port", cfg.Server.Port,
		"allocator", cfg.Allocator.Endpoint,
	)

	// Initialize OpenTelemetry (if enabled)
	ctx := context.Background()
	telemetryProvider, err := telemetry.NewProvider(ctx, cfg.Telemetry, "idpool-agent", cfg.Server.Version)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	if telemetryProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := telemetryProvider.Shutdown(shutdownCtx); shutdownErr != nil {
				slog.Error("error shutting down telemetry", "error", shutdownErr)
			}
		}()
	}

	// Initialize the remote allocator client
	remote, err := allocator.NewClient(cfg.Allocator)
	if err != nil {
		return err
	}

	// Event broker feeds the websocket stream; the pool manager
	// publishes pool lifecycle events into it.
	broker := events.NewBroker()
	pools := idpool.NewManager(remote, broker, idpool.Config{
		AllocCount:         cfg.Pool.AllocCount,
		PoolLowerBound:     cfg.Pool.PoolLowerBound,
		LentPoolUpperBound: cfg.Pool.LentPoolUpperBound,
	})

	// Initialize and start HTTP server
	server := api.NewServer(cfg, pools, broker)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Start(); err != nil {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server...")

	if err := server.Shutdown(); err != nil {
		slog.Error("error during shutdown", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

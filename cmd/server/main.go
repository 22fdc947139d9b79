// Package main is the entry point for the document chunking API server.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alqutdigital/doc-chunker/internal/api"
	"github.com/alqutdigital/doc-chunker/internal/api/handlers"
	"github.com/alqutdigital/doc-chunker/internal/api/middleware"
	"github.com/alqutdigital/doc-chunker/internal/app"
	"github.com/alqutdigital/doc-chunker/internal/config"
	"github.com/alqutdigital/doc-chunker/pkg/logger"
	"github.com/alqutdigital/doc-chunker/pkg/shutdown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})
	log.SetDefault()

	log.Info("starting chunking server",
		"version", handlers.ServiceVersion,
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"mode", cfg.Chunking.Mode,
		"profile", cfg.Chunking.Profile,
	)

	ctx, stop := shutdown.SignalContext(context.Background())
	defer stop()

	shutdownHandler := shutdown.New(log.Logger, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)

	// ============================
	// Backing services
	// ============================
	components, err := app.Open(ctx, cfg, log.Logger, app.Options{
		Cache:   true,
		Storage: true,
		Events:  true,
		Oracle:  true,
	})
	if err != nil {
		return err
	}
	shutdownHandler.RegisterNamed("backing-services", func(ctx context.Context) error {
		return components.Close()
	})

	service, err := components.Service()
	if err != nil {
		return err
	}

	// ============================
	// Rate limit store
	// ============================
	// Redis shares counters between instances; memory is the single-instance fallback.
	var rateLimitStore middleware.RateLimitStore
	if components.Redis != nil {
		rateLimitStore = middleware.NewRedisRateLimitStore(ctx, components.Redis, "ratelimit", log.Logger)
		log.Info("using Redis rate limit store")
	} else {
		memStore := middleware.NewMemoryRateLimitStore()
		shutdownHandler.RegisterNamed("rate-limit-store", func(ctx context.Context) error {
			memStore.Close()
			return nil
		})
		rateLimitStore = memStore
	}

	// ============================
	// Setup API Router
	// ============================
	deps := api.Dependencies{
		Logger:         log.Logger,
		ChunkService:   service,
		RateLimitStore: rateLimitStore,
		HealthCheckers: components.HealthCheckers(),
	}
	if components.Store != nil {
		deps.OutputStore = components.Store
	}

	routerConfig := api.DefaultRouterConfig()
	if cfg.Server.RequestTimeout > 0 {
		routerConfig.RequestTimeout = cfg.Server.RequestTimeout
	}
	router := api.NewRouter(deps, routerConfig)

	// ============================
	// Initialize HTTP Server
	// ============================
	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = cfg.Server.Port
	serverConfig.ShutdownTimeout = time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if routerConfig.RequestTimeout+time.Minute > serverConfig.WriteTimeout {
		serverConfig.WriteTimeout = routerConfig.RequestTimeout + time.Minute
	}

	server := api.NewServer(router, serverConfig, log.Logger)

	shutdownHandler.RegisterNamed("http-server", func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr())
		if err := server.Start(); err != nil {
			log.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	if err := shutdownHandler.Wait(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"productapi/internal/api"
	"productapi/internal/auth"
	"productapi/internal/config"
	"productapi/internal/logger"
	"productapi/internal/models"
	"productapi/internal/observability"
	"productapi/internal/product"
	"productapi/internal/ratelimit"
	"productapi/internal/storage"
	"productapi/internal/version"

	"github.com/redis/go-redis/v9"
)

var configFile = flag.String("config", "", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, version.GetInfo())
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, version.GetInfo())
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Initialize storage
	storageInstance, err := storage.Create(context.Background(), cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer storageInstance.Close()

	// Wrap storage with instrumentation if metrics are enabled
	var activeStorage storage.Storage = storageInstance
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStorage(storageInstance)
		if err != nil {
			slog.Error("Failed to create instrumented storage", "error", err)
			os.Exit(1)
		}
		activeStorage = instrumented
	}

	// Initialize services
	authService := auth.NewService(activeStorage, cfg.Security.TokenTTL)
	productService := product.NewService(activeStorage)

	if err := seedBootstrapAdmin(context.Background(), authService, activeStorage, cfg); err != nil {
		slog.Error("Failed to seed bootstrap admin", "error", err)
		os.Exit(1)
	}

	handlers := api.NewHandlers(productService, authService, activeStorage)

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	// Initialize rate limiter if enabled
	var redisClient *redis.Client
	if cfg.Security.RateLimit.Enabled {
		rlCfg := cfg.Security.RateLimit

		limiter := ratelimit.New(
			rlCfg.IPRequestsPerMinute,
			rlCfg.UserRequestsPerMinute,
			rlCfg.Window,
			ratelimit.WithSweepInterval(rlCfg.SweepInterval),
		)
		defer limiter.Close()

		stats, client, err := buildDecisionStats(cfg)
		if err != nil {
			slog.Error("Failed to initialize rate limit stats", "error", err)
			os.Exit(1)
		}
		redisClient = client

		routeOpts = append(routeOpts, api.WithRateLimiter(ratelimit.Middleware(limiter, stats)))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Periodically purge expired tokens so dead credentials do not pile up.
	tokenCleanupDone := make(chan struct{})
	if cfg.Security.EnableAuth && cfg.Security.TokenTTL > 0 {
		go tokenCleanupLoop(authService, tokenCleanupDone)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "addr", server.Addr, "version", version.GetInfo().Version)

		var err error
		if cfg.Server.TLSEnabled {
			if cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == "" {
				slog.Error("TLS is enabled but cert file or key file is not specified")
				os.Exit(1)
			}
			slog.Info("Starting HTTPS server with TLS")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			slog.Info("Starting HTTP server")
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	close(tokenCleanupDone)

	// Create a deadline to wait for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown metrics server
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}

// buildDecisionStats wires the configured admission-decision sink. Redis
// when stats persistence is enabled, OTel counters when only metrics are,
// otherwise none.
func buildDecisionStats(cfg *models.Config) (ratelimit.DecisionStats, *redis.Client, error) {
	if cfg.Stats.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Stats.Redis.Addr,
			Password: cfg.Stats.Redis.Password,
			DB:       cfg.Stats.Redis.DB,
			PoolSize: cfg.Stats.Redis.PoolSize,
		})
		stats := ratelimit.NewRedisStats(client,
			ratelimit.WithStatsPrefix(cfg.Stats.Prefix),
			ratelimit.WithStatsTTL(cfg.Stats.TTL),
		)
		return stats, client, nil
	}

	if cfg.Metrics.Enabled {
		stats, err := observability.NewRateLimitStats()
		if err != nil {
			return nil, nil, err
		}
		return stats, nil, nil
	}

	return nil, nil, nil
}

// seedBootstrapAdmin creates the configured admin account if it does not
// exist yet. It is a no-op when auth is disabled or nothing is configured.
func seedBootstrapAdmin(ctx context.Context, authService *auth.Service, store storage.Storage, cfg *models.Config) error {
	if !cfg.Security.EnableAuth || cfg.Security.BootstrapAdmin == "" || cfg.Security.BootstrapAdminPassword == "" {
		return nil
	}

	if _, err := store.GetUserByUsername(ctx, cfg.Security.BootstrapAdmin); err == nil {
		// Already seeded - idempotent.
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	user, err := authService.Register(ctx, &models.RegisterRequest{
		Username: cfg.Security.BootstrapAdmin,
		Email:    cfg.Security.BootstrapAdmin + "@localhost",
		Password: cfg.Security.BootstrapAdminPassword,
		Role:     models.RoleAdmin,
	}, &models.User{Role: models.RoleAdmin, Active: true})
	if err != nil {
		return err
	}
	slog.Info("bootstrap admin seeded", "id", user.ID, "username", user.Username)
	return nil
}

// tokenCleanupLoop deletes expired tokens every hour until done is closed.
func tokenCleanupLoop(authService *auth.Service, done <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := authService.CleanupExpiredTokens(context.Background())
			if err != nil {
				slog.Error("Token cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("Expired tokens removed", "count", removed)
			}
		case <-done:
			return
		}
	}
}

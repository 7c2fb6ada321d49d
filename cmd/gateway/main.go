// Copyright 2026 The Lealta Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lealta/gateway/internal/audit"
	"github.com/lealta/gateway/internal/business"
	"github.com/lealta/gateway/internal/cache"
	"github.com/lealta/gateway/internal/config"
	"github.com/lealta/gateway/internal/observability/logger"
	"github.com/lealta/gateway/internal/observability/metrics"
	"github.com/lealta/gateway/internal/observability/tracing"
	"github.com/lealta/gateway/internal/ratelimit"
	"github.com/lealta/gateway/internal/session"
	"github.com/lealta/gateway/internal/store/postgres"
	redisstore "github.com/lealta/gateway/internal/store/redis"
	transportHTTP "github.com/lealta/gateway/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting lealta gateway")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter and the dispatcher decision counters
	meter := metrics.New(metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	gatewayMetrics, err := metrics.NewGateway(meter)
	if err != nil {
		slog.Error("failed to initialize metrics", logger.Error(err))
		os.Exit(1)
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Rate limit counters live in Redis; without it the limiter allows
	// everything rather than taking the platform down.
	var counterStore ratelimit.CounterStore
	healthChecks := map[string]transportHTTP.HealthCheck{
		"database": func(ctx context.Context) error {
			return db.Pool().Ping(ctx)
		},
	}
	if cfg.Redis.URL != "" {
		redisClient, err := redisstore.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			slog.Error("failed to connect to redis", logger.Error(err))
			os.Exit(1)
		}
		defer redisClient.Close()
		counterStore = redisstore.NewCounterStore(redisClient)
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
		slog.Info("connected to redis, rate limiting enabled")
	} else {
		slog.Warn("no REDIS_URL configured, rate limiting disabled")
	}

	// Initialize repositories
	businessRepo := postgres.NewBusinessRepository(db)
	userRepo := postgres.NewUserRepository(db)
	clientRepo := postgres.NewClientRepository(db)

	// Resolver over the two shared tenant caches
	resolver := business.NewResolver(
		businessRepo,
		cache.New[*business.Business](cfg.Cache.BusinessTTL, cfg.Cache.MaxSize, cfg.Cache.CleanupInterval),
		cache.New[*business.Business](cfg.Cache.ValidationTTL, cfg.Cache.MaxSize, cfg.Cache.CleanupInterval),
	)

	validator := session.NewValidator(userRepo, clientRepo)
	limiter := ratelimit.New(counterStore, ratelimit.Config{
		AuthLimit:   cfg.RateLimit.AuthLimit,
		APILimit:    cfg.RateLimit.APILimit,
		PublicLimit: cfg.RateLimit.PublicLimit,
		Window:      cfg.RateLimit.Window,
	})

	upstream, err := transportHTTP.NewUpstreamProxy(cfg.Upstream.URL)
	if err != nil {
		slog.Error("failed to configure upstream", logger.Error(err))
		os.Exit(1)
	}

	dispatcher := transportHTTP.NewDispatcher(
		resolver,
		validator,
		limiter,
		audit.NewSlogLogger(),
		gatewayMetrics,
		upstream,
		cfg.Session.CookieName,
	)

	// Create router
	router := transportHTTP.NewRouter(dispatcher, healthChecks, 60*time.Second)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s, forwarding to %s", addr, cfg.Upstream.URL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", logger.Error(err))
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	natsqueue "github.com/SscSPs/exchange_ledger/internal/adapters/messaging/nats"
	"github.com/SscSPs/exchange_ledger/internal/core/services"
	"github.com/SscSPs/exchange_ledger/internal/dto"
	"github.com/SscSPs/exchange_ledger/internal/handlers"
	"github.com/SscSPs/exchange_ledger/internal/middleware"
	"github.com/SscSPs/exchange_ledger/internal/platform/config"
)

// @title Exchange Ledger API
// @version 1.0
// @description Multi-asset ledger with deposits, withdrawals, exchanges, transfers and gateway reconciliation.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := dto.RegisterValidators(); err != nil {
		logger.Error("Failed to register validators", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry)

	repos, closeStore, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	gateways := buildGateways(cfg)
	rateSource, err := buildRateSource(cfg)
	if err != nil {
		logger.Error("Failed to initialize rate source", slog.String("error", err.Error()))
		os.Exit(1)
	}
	publisher, closePublisher := buildPublisher(cfg, logger)
	defer closePublisher()

	container := services.NewServiceContainer(cfg, repos, services.ExternalDependencies{
		Gateways:   gateways,
		RateSource: rateSource,
		Publisher:  publisher,
		Metrics:    metrics,
	})

	routeDeps := handlers.RouteDeps{Gatherer: registry}
	if routeDeps.APILimiter, err = middleware.NewMemoryLimiter(cfg.RateLimit); err != nil {
		logger.Error("Invalid RATE_LIMIT", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if routeDeps.WebhookLimiter, err = middleware.NewMemoryLimiter(cfg.WebhookRateLimit); err != nil {
		logger.Error("Invalid WEBHOOK_RATE_LIMIT", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.NATSURL != "" {
		queue, err := natsqueue.Connect(ctx, natsqueue.QueueConfig{
			URL:     cfg.NATSURL,
			Stream:  cfg.NATSStream,
			Subject: cfg.NATSNotificationSubject,
			Durable: cfg.NATSDurable,
		})
		if err != nil {
			logger.Error("Failed to connect notification queue", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer queue.Close()
		if err := queue.Start(ctx, container.Reconciliation.HandleNotification, logger); err != nil {
			logger.Error("Failed to start notification consumer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		routeDeps.Queue = queue
		logger.Info("Gateway notifications are queued", slog.String("stream", cfg.NATSStream))
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, metrics)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery(), middleware.NewHTTPMetrics(registry).Middleware())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container, routeDeps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	poller := services.NewPollerFromConfig(cfg, repos.LedgerRepo, container.Reconciliation, gateways, metrics, logger)
	refresher := services.NewRateRefresher(container.Rates, cfg.RateRefreshInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		poller.Run(gctx)
		return nil
	})
	g.Go(func() error {
		refresher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

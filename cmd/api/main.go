package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/brendonia/brendonia-backend/api/controllers"
	"github.com/brendonia/brendonia-backend/api/routes"
	"github.com/brendonia/brendonia-backend/internal/ledger"
	"github.com/brendonia/brendonia-backend/internal/payments"
	"github.com/brendonia/brendonia-backend/internal/videos"
	payevosvc "github.com/brendonia/brendonia-backend/internal/webhooks/payevo"
	"github.com/brendonia/brendonia-backend/pkg/config"
	"github.com/brendonia/brendonia-backend/pkg/db"
	"github.com/brendonia/brendonia-backend/pkg/logger"
	"github.com/brendonia/brendonia-backend/pkg/metrics"
	"github.com/brendonia/brendonia-backend/pkg/migrate"
	"github.com/brendonia/brendonia-backend/pkg/pubsub"
	"github.com/brendonia/brendonia-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	// redis only backs the webhook dedup fast path, so the API boots without it
	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured, webhook dedup falls back to the database")
	}

	var publisher videos.EventPublisher
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		if p := pubsubClient.VideoEventPublisher(); p != nil {
			publisher = p
		}
	} else {
		logg.Warn(ctx, "pubsub not configured, submitted jobs rely on the worker rescan")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.NewLedgerMetrics(registry)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		DB:      dbClient,
		Metrics: ledgerMetrics,
	})
	requireResource(ctx, logg, "ledger service", err)

	videosSvc, err := videos.NewService(videos.ServiceParams{
		Repo:      videos.NewRepository(dbClient.DB()),
		Ledger:    ledgerSvc,
		Publisher: publisher,
		Logger:    logg,
	})
	requireResource(ctx, logg, "videos service", err)

	paymentsSvc, err := payments.NewService(payments.ServiceParams{Payevo: cfg.Payevo})
	requireResource(ctx, logg, "payments service", err)

	var guard *payevosvc.Guard
	if redisClient != nil {
		guard = payevosvc.NewGuard(redisClient)
	}
	webhookSvc, err := payevosvc.NewService(payevosvc.ServiceParams{
		Repo:     payevosvc.NewRepository(dbClient.DB()),
		Ledger:   ledgerSvc,
		Payments: paymentsSvc,
		Guard:    guard,
		Metrics:  webhookMetrics,
		Logger:   logg,
	})
	requireResource(ctx, logg, "webhook service", err)

	router := routes.NewRouter(routes.RouterParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisPingerOrNil(redisClient),
		Registry: registry,
		Ledger:   ledgerSvc,
		Videos:   videosSvc,
		Payments: paymentsSvc,
		Webhook:  webhookSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(runCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}
}

// redisPingerOrNil avoids handing the router a typed-nil interface when redis
// is not configured.
func redisPingerOrNil(client *redis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}

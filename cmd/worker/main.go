package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brendonia/brendonia-backend/internal/highlights"
	"github.com/brendonia/brendonia-backend/internal/videos"
	"github.com/brendonia/brendonia-backend/pkg/config"
	"github.com/brendonia/brendonia-backend/pkg/db"
	"github.com/brendonia/brendonia-backend/pkg/logger"
	"github.com/brendonia/brendonia-backend/pkg/metrics"
	"github.com/brendonia/brendonia-backend/pkg/openai"
	"github.com/brendonia/brendonia-backend/pkg/pubsub"
	"github.com/brendonia/brendonia-backend/pkg/transcript"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	requireResource(ctx, logg, "video subscription", pubsubClient.EnsureVideoSubscription(ctx))

	openaiClient, err := openai.NewClient(ctx, cfg.OpenAI, logg)
	requireResource(ctx, logg, "openai client", err)

	registry := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(registry)

	videosRepo := videos.NewRepository(dbClient.DB())
	highlightsSvc, err := highlights.NewService(highlights.ServiceParams{
		DB:         dbClient,
		Videos:     videosRepo,
		Transcript: transcript.NewClient(cfg.Transcript, logg),
		Generator:  openaiClient,
		Metrics:    jobMetrics,
		Logger:     logg,
	})
	requireResource(ctx, logg, "highlights service", err)

	consumer, err := highlights.NewConsumer(
		highlightsSvc,
		pubsubClient.VideoSubscription(),
		videosRepo,
		cfg.Worker,
		logg,
	)
	requireResource(ctx, logg, "consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "worker ready")

	go consumer.RunRescan(runCtx)

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}

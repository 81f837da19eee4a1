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

	"github.com/hibiken/asynq"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/app"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/itinerary"
	jobmetrics "github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/jobs"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/management"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/observability"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/cache"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/db"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/jobs"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "worker")

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	dataStore := store.NewPostgres(pool)

	summaryService := management.NewService(dataStore, management.NewCache(redisClient, cfg.SummaryCacheTTL))
	warmupJob := jobs.NewSummaryWarmupJob(summaryService, logger, jobMetrics)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("pdf renderer ping", slog.Any("error", err))
	}
	renderer, err := itinerary.NewRenderer(pdfClient, cfg.CurrencySymbol)
	if err != nil {
		logger.Error("init itinerary renderer", slog.Any("error", err))
		os.Exit(1)
	}
	itineraryJob := itinerary.NewJob(itinerary.JobConfig{
		Service:    itinerary.NewService(dataStore),
		Renderer:   renderer,
		StorageDir: cfg.ItineraryStorageDir,
		Agency:     cfg.AgencyName,
		Logger:     logger,
		Metrics:    jobMetrics,
	})

	warmupTask, err := jobs.NewSummaryWarmupTask(jobs.SummaryWarmupPayload{Months: 2})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("queue redis options", slog.Any("error", err))
		os.Exit(1)
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskItineraryRender, Handler: itineraryJob.Handle},
			{Type: jobs.TaskSummaryWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SummaryWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(1), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency), slog.String("warmup_cron", cfg.SummaryWarmupCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

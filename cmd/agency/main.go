package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/accounting"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/app"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/auth"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/itinerary"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/management"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/observability"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/operations"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/cache"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/platform/db"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/pricing"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/providers"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/rbac"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/sales"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/store"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/view"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/jobs"
	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "agency")

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "agency_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngineWith(view.Options{Brand: cfg.AgencyName, Currency: cfg.CurrencySymbol})
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	dataStore := store.NewPostgres(dbpool)
	auditLogger := store.NewAuditTrail(dataStore)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	accountingService := accounting.NewService(dataStore, auditLogger).WithLogger(logger)
	accountingHandler := accounting.NewHandler(logger, accountingService, templates, csrfManager, rbacMiddleware)

	salesService := sales.NewService(dataStore, accountingService)
	salesHandler := sales.NewHandler(logger, salesService, templates, csrfManager, rbacMiddleware)

	pricingHandler := pricing.NewHandler(logger, templates, csrfManager, rbacMiddleware)

	directory := providers.NewDirectory(dataStore)
	providersHandler := providers.NewHandler(logger, directory, templates, csrfManager, rbacMiddleware)

	boardBuilder := operations.NewBuilder(dataStore, logger, cfg.CurrencySymbol)
	assigner := operations.NewAssigner(dataStore, directory, auditLogger, logger)
	operationsHandler := operations.NewHandler(logger, boardBuilder, assigner, templates, csrfManager, rbacMiddleware)

	summaryCache := management.NewCache(redisClient, cfg.SummaryCacheTTL)
	summaryService := management.NewService(dataStore, summaryCache)
	managementHandler := management.NewHandler(logger, summaryService, templates, csrfManager, rbacMiddleware)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger)

	redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("queue redis options", slog.Any("error", err))
		os.Exit(1)
	}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	managementHandler.WithWarmer(jobClient)

	itineraryService := itinerary.NewService(dataStore)
	itineraryRenderer, err := itinerary.NewRenderer(reportClient, cfg.CurrencySymbol)
	if err != nil {
		logger.Error("init itinerary renderer", slog.Any("error", err))
		os.Exit(1)
	}
	itineraryHandler := itinerary.NewHandler(logger, itineraryService, itineraryRenderer, jobClient, rbacMiddleware, cfg.AgencyName)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Templates:         templates,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		RBAC:              rbacService,
		RBACMiddleware:    rbacMiddleware,
		AuthHandler:       authHandler,
		SalesHandler:      salesHandler,
		PricingHandler:    pricingHandler,
		OperationsHandler: operationsHandler,
		ProvidersHandler:  providersHandler,
		AccountingHandler: accountingHandler,
		ManagementHandler: managementHandler,
		ItineraryHandler:  itineraryHandler,
		JobHandler:        jobHandler,
		ReportHandler:     reportHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("agency", cfg.AgencyName))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/civicgov/grievance-service/internal/api/http"
	"github.com/civicgov/grievance-service/internal/api/http/handlers"
	"github.com/civicgov/grievance-service/internal/auth"
	"github.com/civicgov/grievance-service/internal/cache"
	"github.com/civicgov/grievance-service/internal/classifier"
	"github.com/civicgov/grievance-service/internal/config"
	"github.com/civicgov/grievance-service/internal/events"
	"github.com/civicgov/grievance-service/internal/observability"
	"github.com/civicgov/grievance-service/internal/persistence"
	"github.com/civicgov/grievance-service/internal/ratelimit"
	"github.com/civicgov/grievance-service/internal/repository"
	"github.com/civicgov/grievance-service/internal/service"
	"github.com/civicgov/grievance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	metricsServer := observability.NewMetricsServer(cfg.Metrics, logger)
	metricsServer.Start()

	var primary classifier.Classifier
	gemini, err := classifier.NewGeminiClassifier(ctx, cfg.Classifier, logger)
	switch {
	case err == classifier.ErrNotConfigured:
		logger.Warn("hosted classifier not configured; heuristic fallback only")
	case err != nil:
		logger.Fatal("failed to init classifier", zap.Error(err))
	default:
		primary = gemini
	}

	pool := pg.PoolHandle()
	grievanceRepo := repository.NewGrievanceRepository(pool)
	historyRepo := repository.NewGrievanceHistoryRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	trackingCache := cache.NewTrackingCache(redis, cfg.Redis.TrackingCacheTTL(), logger)
	limiter := ratelimit.NewLimiter(redis, cfg.RateLimit, logger)

	grievanceService := service.NewGrievanceService(service.GrievanceDependencies{
		GrievanceRepo: grievanceRepo,
		HistoryRepo:   historyRepo,
		Primary:       primary,
		Fallback:      classifier.NewKeywordClassifier(),
		Cache:         trackingCache,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	authService := service.NewAuthService(*cfg, adminRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)
	if primary != nil {
		reclassifyWorker := worker.NewReclassifyWorker(
			grievanceService,
			cfg.Worker.ReclassifyInterval(),
			cfg.Worker.ReclassifyBatchSize,
			logger)
		go reclassifyWorker.Run(ctx)
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), adminRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Grievances:      handlers.NewGrievancesHandler(grievanceService, limiter, metrics),
		AdminGrievances: handlers.NewAdminGrievancesHandler(grievanceService),
		AdminAuth:       handlers.NewAdminAuthHandler(authService),
		AuthMiddleware:  authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

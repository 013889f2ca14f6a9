package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/auth"
	"github.com/vichsort/PlantE/pkg/cache"
	"github.com/vichsort/PlantE/pkg/config"
	"github.com/vichsort/PlantE/pkg/database"
	"github.com/vichsort/PlantE/pkg/enrich"
	"github.com/vichsort/PlantE/pkg/handlers"
	"github.com/vichsort/PlantE/pkg/logging"
	"github.com/vichsort/PlantE/pkg/plantid"
	"github.com/vichsort/PlantE/pkg/push"
	"github.com/vichsort/PlantE/pkg/repositories"
	"github.com/vichsort/PlantE/pkg/scheduler"
	"github.com/vichsort/PlantE/pkg/services"
	"github.com/vichsort/PlantE/pkg/tasks"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "plante: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting plante",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations run through database/sql; the pool itself is pgx.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		_ = migrationDB.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	// The fast tier and the usage counters degrade gracefully without
	// Redis, except that the daily gate fails closed.
	var store cache.Store
	if redisClient != nil {
		store = cache.NewRedisStore(redisClient)
		defer func() { _ = redisClient.Close() }()
	} else {
		logger.Warn("redis not configured, using in-process store")
		store = cache.NewMemoryStore()
	}

	identifier, err := plantid.NewClient(&plantid.Config{
		BaseURL: cfg.PlantID.BaseURL,
		APIKey:  cfg.PlantID.APIKey,
		Timeout: cfg.PlantID.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating plant.id client: %w", err)
	}

	enricher, err := enrich.NewClient(&enrich.Config{
		BaseURL: cfg.Enrichment.BaseURL,
		Model:   cfg.Enrichment.Model,
		APIKey:  cfg.Enrichment.APIKey,
		Timeout: cfg.Enrichment.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating enrichment client: %w", err)
	}

	var sender push.Sender = push.NopSender{}
	if cfg.Push.CredentialsFile != "" {
		fcm, err := push.NewFCMSender(ctx, cfg.Push.CredentialsFile, logger)
		if err != nil {
			return fmt.Errorf("creating fcm sender: %w", err)
		}
		sender = fcm
	} else {
		logger.Warn("push delivery not configured, notifications are dropped")
	}

	// Repositories.
	userRepo := repositories.NewUserRepository(db)
	guideRepo := repositories.NewGuideRepository(db)
	plantRepo := repositories.NewPlantRepository(db)
	achievementRepo := repositories.NewAchievementRepository(db)

	// Services.
	guideCache := cache.NewGuideCache(store, guideRepo, enricher, logger)
	gate := services.NewRateLimitService(store, cfg.RateLimit.FreeDailyLimit, logger)
	achievements := services.NewAchievementService(achievementRepo, db.Pool, logger)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userSvc := services.NewUserService(userRepo, achievements, tokens, logger)
	profileSvc := services.NewProfileService(userRepo, plantRepo, achievements, logger)

	// Background work.
	queue := tasks.NewQueue(logger, tasks.WithRetryPolicy(tasks.RetryPolicy{
		MaxAttempts: 3,
		Delay:       cfg.Scheduler.RetryDelay,
	}))
	dispatcher := tasks.NewDispatcher(queue, guideCache, enricher, userRepo, achievements, sender, logger)

	gardenSvc := services.NewGardenService(identifier, guideCache, plantRepo, userRepo, gate, achievements, dispatcher, logger)

	periodic := scheduler.New(queue, logger)
	periodic.Add("watering", cfg.Scheduler.WateringInterval, func() tasks.Task {
		return &tasks.WateringSweepTask{Plants: plantRepo, Users: userRepo, Sender: sender, Guides: guideCache, Logger: logger}
	})
	periodic.Add("stale-tokens", cfg.Scheduler.StaleTokenInterval, func() tasks.Task {
		return &tasks.StaleTokenSweepTask{Users: userRepo, Logger: logger}
	})
	periodic.Add("longevity", cfg.Scheduler.LongevityInterval, func() tasks.Task {
		return &tasks.LongevitySweepTask{Users: userRepo, Achievements: achievements, Logger: logger}
	})
	periodic.Start()

	// HTTP surface.
	mux := http.NewServeMux()
	requireAuth := func(next http.Handler) http.Handler {
		return auth.RequireAuth(tokens, next)
	}

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(userSvc, logger).RegisterRoutes(mux)
	handlers.NewProfileHandler(profileSvc, userSvc, achievements, logger).RegisterRoutes(mux, requireAuth)
	handlers.NewGardenHandler(gardenSvc, logger).RegisterRoutes(mux, requireAuth)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           handlers.RequestLogger(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	periodic.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Warn("task queue shutdown incomplete", zap.Error(err))
	}
	return nil
}

// Package main is the entrypoint for the WaveCap API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wavecap/wavecap/internal/api"
	"github.com/wavecap/wavecap/internal/api/handler"
	mw "github.com/wavecap/wavecap/internal/api/middleware"
	"github.com/wavecap/wavecap/internal/batch"
	"github.com/wavecap/wavecap/internal/cache"
	"github.com/wavecap/wavecap/internal/capture"
	"github.com/wavecap/wavecap/internal/catalog"
	"github.com/wavecap/wavecap/internal/config"
	"github.com/wavecap/wavecap/internal/recorder"
	"github.com/wavecap/wavecap/internal/schedule"
	"github.com/wavecap/wavecap/internal/scheduler"
	"github.com/wavecap/wavecap/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is a local-development convenience; absence is not an error
	_ = godotenv.Load()

	// 1. Load config, failing fast when required vars are missing
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "timezone", cfg.Scheduler.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Wire the scheduling core
	pgStore := store.NewPostgresStore(pool)
	agent := capture.NewHTTPClient(cfg.Capture.AgentURL, cfg.Capture.Timeout)
	loc := cfg.Location()

	stationCatalog := catalog.NewStoreCatalog(pgStore)
	manager := recorder.NewManager(pgStore, agent, redisCache, recorder.Config{
		LostContactGrace: cfg.Scheduler.LostContactGrace,
		PostProcessing:   cfg.Scheduler.PostProcessing,
	})
	evaluator := schedule.NewEvaluator(pgStore, loc)
	orchestrator := batch.NewOrchestrator(stationCatalog, pgStore, manager, cfg.Scheduler.BatchWorkers, loc)
	loop := scheduler.NewLoop(evaluator, manager, pgStore, agent, loc,
		cfg.Scheduler.TickInterval, cfg.Scheduler.PollInterval)

	go func() {
		if err := loop.Run(ctx); err != nil {
			slog.Error("scheduler loop", "error", err)
		}
	}()

	// 6. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 60)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: handler.NewHealthHandler(pgStore, redisCache, loop),

		CreateStation: handler.NewCreateStationHandler(pgStore),
		ListStations:  handler.NewListStationsHandler(pgStore),
		GetStation:    handler.NewGetStationHandler(pgStore),
		UpdateStation: handler.NewUpdateStationHandler(pgStore),
		DeleteStation: handler.NewDeleteStationHandler(pgStore),

		CreateSchedule: handler.NewCreateScheduleHandler(pgStore, loc),
		ListSchedules:  handler.NewListSchedulesHandler(pgStore, loc),
		GetSchedule:    handler.NewGetScheduleHandler(pgStore, loc),
		UpdateSchedule: handler.NewUpdateScheduleHandler(pgStore, loc),
		ToggleSchedule: handler.NewToggleScheduleHandler(pgStore, loc),
		DeleteSchedule: handler.NewDeleteScheduleHandler(pgStore),

		StartRecording:  handler.NewStartRecordingHandler(manager),
		StopRecording:   handler.NewStopRecordingHandler(manager),
		GetRecording:    handler.NewGetJobHandler(pgStore),
		RecordingStatus: handler.NewJobStatusHandler(manager),
		ListRecordings:  handler.NewListJobsHandler(pgStore),
		ListOngoing:     handler.NewListOngoingHandler(pgStore),

		CreateBatch: handler.NewCreateBatchHandler(orchestrator),
		GetBatch:    handler.NewGetBatchHandler(pgStore),
		StopBatch:   handler.NewStopBatchHandler(manager, pgStore),

		CaptureStatus: handler.NewCaptureStatusHandler(manager),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

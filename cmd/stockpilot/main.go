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

	"github.com/stockpilot-erp/stockpilot/internal/app"
	"github.com/stockpilot-erp/stockpilot/internal/inventory"
	"github.com/stockpilot-erp/stockpilot/internal/observability"
	"github.com/stockpilot-erp/stockpilot/internal/platform/cache"
	"github.com/stockpilot-erp/stockpilot/internal/platform/db"
	"github.com/stockpilot-erp/stockpilot/internal/procurement"
	"github.com/stockpilot-erp/stockpilot/internal/quality"
	"github.com/stockpilot-erp/stockpilot/internal/shared"
	"github.com/stockpilot-erp/stockpilot/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var (
		eventLog        shared.Recorder
		procurementRepo procurement.RepositoryPort
		inventoryRepo   inventory.RepositoryPort
		qualityRepo     quality.RepositoryPort
	)
	switch cfg.StoreDriver {
	case app.StoreDriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{
			MaxConns:        cfg.PGMaxConns,
			MaxConnLifetime: cfg.PGConnLifetime,
		})
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		eventLog = shared.NewPGLog(pool)
		procurementRepo = procurement.NewRepository(pool)
		inventoryRepo = inventory.NewRepository(pool)
		qualityRepo = quality.NewRepository(pool)
	default:
		eventLog = shared.NewMemoryLog()
		procurementRepo = procurement.NewMemoryRepository()
		inventoryRepo = inventory.NewMemoryRepository()
		qualityRepo = quality.NewMemoryRepository()
	}

	var (
		snapshotCache *inventory.SnapshotCache
		jobHandler    *jobs.Handler
	)
	if cfg.RedisAddr != "" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, cache and jobs disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			snapshotCache = inventory.NewSnapshotCache(redisClient, cfg.SnapshotTTL)

			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer func() {
				if err := inspector.Close(); err != nil {
					logger.Warn("inspector close", slog.Any("error", err))
				}
			}()
			jobHandler = jobs.NewHandler(inspector, logger)
		}
	}
	inventoryService := inventory.NewService(inventoryRepo, eventLog, snapshotCache, logger)
	procurementService := procurement.NewService(procurementRepo, inventoryService, eventLog, logger)
	qualityService := quality.NewService(qualityRepo, procurementService, inventoryService, eventLog, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ProcurementHandler: procurement.NewHandler(logger, procurementService),
		QualityHandler:     quality.NewHandler(logger, qualityService),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService),
		Events:             eventLog,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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

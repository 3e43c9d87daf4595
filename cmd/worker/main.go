package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/stockpilot-erp/stockpilot/internal/app"
	"github.com/stockpilot-erp/stockpilot/internal/inventory"
	jobmetrics "github.com/stockpilot-erp/stockpilot/internal/jobs"
	"github.com/stockpilot-erp/stockpilot/internal/platform/db"
	"github.com/stockpilot-erp/stockpilot/internal/shared"
	"github.com/stockpilot-erp/stockpilot/jobs"
)

// The worker runs the periodic ledger integrity check. It only makes sense
// against the postgres store, where server and worker share state.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.RedisAddr == "" {
		logger.Error("REDIS_ADDR required for the worker")
		os.Exit(1)
	}
	if cfg.StoreDriver != app.StoreDriverPostgres {
		logger.Error("worker requires STORE_DRIVER=postgres")
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{
		MaxConns:        cfg.PGMaxConns,
		MaxConnLifetime: cfg.PGConnLifetime,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	eventLog := shared.NewPGLog(pool)
	ledgerRepo := inventory.NewRepository(pool)

	metrics := jobmetrics.NewMetrics(nil)
	integrity := jobs.NewLedgerIntegrityHandler(eventLog, ledgerRepo, logger)
	tracked := func(ctx context.Context, t *asynq.Task) error {
		return metrics.Track(jobs.TaskLedgerIntegrity).End(integrity(ctx, t))
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrity, Handler: tracked},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LedgerIntegrityCron, Task: jobs.NewLedgerIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/productsheet/internal/app"
	"github.com/odyssey-erp/productsheet/internal/catalog"
	"github.com/odyssey-erp/productsheet/internal/importer"
	jobmetrics "github.com/odyssey-erp/productsheet/internal/jobs"
	"github.com/odyssey-erp/productsheet/internal/platform/cache"
	"github.com/odyssey-erp/productsheet/internal/platform/db"
	"github.com/odyssey-erp/productsheet/internal/sheets"
	"github.com/odyssey-erp/productsheet/jobs"
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

	logger := app.NewLogger(cfg)

	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		logger.Error("database config", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := db.New(ctx, dsn, db.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	fields, err := importer.LoadFieldTable(cfg.FieldSynonymsPath)
	if err != nil {
		logger.Error("load field synonyms", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := jobmetrics.NewMetrics(nil)
	catalogService := catalog.NewService(
		catalog.NewRepository(pool),
		cache.NewVersioned(redisClient, "catalog", cfg.CacheTTL),
		logger,
	)
	fetcher := sheets.NewClient(sheets.ClientConfig{
		BaseURL:  cfg.SheetsBaseURL,
		Timeout:  cfg.SheetsFetchTimeout,
		MaxBytes: cfg.SheetsMaxBytes,
		Logger:   logger,
	})
	importService := importer.NewService(fetcher, fields, catalogService, metrics, logger)
	importJob := jobs.NewSheetImportJob(importService, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSheetImport, Handler: importJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			_ = metricsServer.Close()
		}()
	}

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

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

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/productsheet/cmd/productsheet/cli"
	"github.com/odyssey-erp/productsheet/internal/app"
	"github.com/odyssey-erp/productsheet/internal/catalog"
	"github.com/odyssey-erp/productsheet/internal/importer"
	jobmetrics "github.com/odyssey-erp/productsheet/internal/jobs"
	"github.com/odyssey-erp/productsheet/internal/observability"
	"github.com/odyssey-erp/productsheet/internal/platform/cache"
	"github.com/odyssey-erp/productsheet/internal/platform/db"
	"github.com/odyssey-erp/productsheet/internal/sheets"
	"github.com/odyssey-erp/productsheet/jobs"
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

	logger := app.NewLogger(cfg)

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "serve":
		if err := serve(ctx, stop, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	case "import":
		os.Exit(runImport(ctx, cfg, logger, os.Args[2:]))
	case "enqueue", "queue":
		os.Exit(runJobs(ctx, cfg, command, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command %q (expected serve, import, enqueue or queue)\n", command)
		os.Exit(2)
	}
}

// services holds the services shared by the server and the CLI commands.
type services struct {
	pool        *pgxpool.Pool
	redis       *redis.Client
	catalog     *catalog.Service
	importer    *importer.Service
	fields      *importer.FieldTable
	metrics     *observability.Metrics
	importStats *jobmetrics.Metrics
}

func newServices(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*services, error) {
	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		return nil, err
	}
	pool, err := db.New(ctx, dsn, db.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.DBEnsureSchema {
		if err := catalog.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	fields, err := importer.LoadFieldTable(cfg.FieldSynonymsPath)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	importStats := jobmetrics.NewMetrics(metrics.Registerer())

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
	importService := importer.NewService(fetcher, fields, catalogService, importStats, logger)

	return &services{
		pool:        pool,
		redis:       redisClient,
		catalog:     catalogService,
		importer:    importService,
		fields:      fields,
		metrics:     metrics,
		importStats: importStats,
	}, nil
}

func (rt *services) close(logger *slog.Logger) {
	rt.pool.Close()
	if err := rt.redis.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	rt, err := newServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close(logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		CatalogHandler:  catalog.NewHandler(logger, rt.catalog, rt.fields.AttributeKeys()),
		ImporterHandler: importer.NewHandler(logger, rt.importer, jobs.NewImportQueue(jobClient, inspector)),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Metrics:         rt.metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func runImport(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	opts, err := cli.ParseImportArgs(args, os.Stderr)
	if err != nil {
		return cli.ExitFailure
	}
	rt, err := newServices(ctx, cfg, logger)
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		return cli.ExitFailure
	}
	defer rt.close(logger)

	importCLI, err := cli.NewImportCLI(rt.importer)
	if err != nil {
		logger.Error("init import cli", slog.Any("error", err))
		return cli.ExitFailure
	}
	return importCLI.ImportCommand(ctx, opts)
}

func runJobs(ctx context.Context, cfg *app.Config, command string, args []string) int {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		return cli.ExitFailure
	}
	defer func() {
		_ = jobsCLI.Close()
	}()

	if command == "queue" {
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "queue: %v\n", err)
			return cli.ExitFailure
		}
		cli.PrintQueue(os.Stdout, stats)
		return cli.ExitOK
	}

	opts, err := cli.ParseImportArgs(args, os.Stderr)
	if err != nil {
		return cli.ExitFailure
	}
	if err := jobsCLI.Enqueue(ctx, opts.URL, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "enqueue: %v\n", err)
		return cli.ExitFailure
	}
	return cli.ExitOK
}

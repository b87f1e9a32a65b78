package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/productsheet/internal/importer"
	jobmetrics "github.com/odyssey-erp/productsheet/internal/jobs"
)

// Importer runs the sheet import pipeline.
type Importer interface {
	Import(ctx context.Context, url string) (importer.ImportResult, error)
}

// SheetImportJob processes TaskSheetImport tasks.
type SheetImportJob struct {
	Importer Importer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewSheetImportJob wires dependencies for the import handler.
func NewSheetImportJob(imp Importer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SheetImportJob {
	return &SheetImportJob{Importer: imp, Logger: logger, Metrics: metrics}
}

// Handle runs one import and stores its ImportResult as the task result.
// Failed imports are never retried: rows written before the failure would be
// created again.
func (j *SheetImportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Importer == nil {
		return errors.New("sheet import: handler not configured")
	}
	var payload SheetImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("sheet import: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskSheetImport)
	logger := j.logger().With(slog.String("url", payload.URL))
	if id, ok := asynq.GetTaskID(ctx); ok {
		logger = logger.With(slog.String("job_id", id))
	}
	logger.Info("starting sheet import")

	res, err := j.Importer.Import(ctx, payload.URL)
	if err != nil {
		status, failure := importer.PartialFailure(res, err)
		writeResult(t, failure, logger)
		logger.Warn("sheet import failed",
			slog.Int("status", status),
			slog.Int("imported", failure.ImportedCount),
			slog.Any("error", err),
		)
		return tracker.End(fmt.Errorf("sheet import: %v: %w", err, asynq.SkipRetry))
	}

	writeResult(t, res, logger)
	logger.Info("sheet import finished", slog.Int("imported", res.ImportedCount), slog.Int("failed", len(res.Errors)))
	return tracker.End(nil)
}

func writeResult(t *asynq.Task, res importer.ImportResult, logger *slog.Logger) {
	w := t.ResultWriter()
	if w == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		logger.Error("encode import result", slog.Any("error", err))
		return
	}
	if _, err := w.Write(data); err != nil {
		logger.Error("store import result", slog.Any("error", err))
	}
}

func (j *SheetImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

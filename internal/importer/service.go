package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/productsheet/internal/sheets"
)

// Fetcher downloads one spreadsheet tab.
type Fetcher interface {
	FetchGrid(ctx context.Context, ref sheets.Reference) (sheets.Grid, error)
}

// Recorder observes finished imports.
type Recorder interface {
	ObserveImport(outcome string, imported, failed int, elapsed time.Duration)
}

// Import outcomes reported to the Recorder.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// ImportResult is the outcome reported to callers of an import.
type ImportResult struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	ImportedCount int      `json:"importedCount"`
	Errors        []string `json:"errors,omitempty"`
}

// Prepared is a grid after mapping, normalization and validation.
type Prepared struct {
	Records  []Record
	DataRows int
	Blank    int
	Invalid  int
}

// Service runs the spreadsheet import pipeline.
type Service struct {
	fetcher  Fetcher
	fields   *FieldTable
	bulk     *BulkImporter
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the pipeline. A nil fields table selects the defaults and
// a nil recorder disables metrics.
func NewService(fetcher Fetcher, fields *FieldTable, store Store, recorder Recorder, logger *slog.Logger) *Service {
	if fields == nil {
		fields = DefaultFieldTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:  fetcher,
		fields:   fields,
		bulk:     NewBulkImporter(store, logger),
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Fields returns the header table the service maps with.
func (s *Service) Fields() *FieldTable {
	return s.fields
}

// Import runs the whole pipeline for a share link. Errors returned before the
// bulk stage leave the store untouched. An error during the bulk stage comes
// with a result counting the rows already written; pass both to
// PartialFailure.
func (s *Service) Import(ctx context.Context, rawURL string) (ImportResult, error) {
	start := s.now()
	res, err := s.run(ctx, rawURL)
	elapsed := s.now().Sub(start)

	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeFailed
		s.logger.Warn("sheet import failed", slog.Any("error", err), slog.Duration("elapsed", elapsed))
	case len(res.Errors) > 0:
		outcome = OutcomePartial
	}
	if err == nil {
		s.logger.Info("sheet import finished",
			slog.Int("imported", res.ImportedCount),
			slog.Int("failed", len(res.Errors)),
			slog.Duration("elapsed", elapsed),
		)
	}
	if s.recorder != nil {
		s.recorder.ObserveImport(outcome, res.ImportedCount, len(res.Errors), elapsed)
	}
	return res, err
}

func (s *Service) run(ctx context.Context, rawURL string) (ImportResult, error) {
	if strings.TrimSpace(rawURL) == "" {
		return ImportResult{}, ErrMissingURL
	}
	ref, err := sheets.ParseReference(rawURL)
	if err != nil {
		return ImportResult{}, err
	}

	grid, err := s.fetcher.FetchGrid(ctx, ref)
	if err != nil {
		return ImportResult{}, fmt.Errorf("importer: fetch %s: %w", ref, err)
	}

	prepared, err := Prepare(grid, s.fields)
	if err != nil {
		return ImportResult{}, err
	}
	s.logger.Debug("sheet prepared",
		slog.String("sheet", ref.String()),
		slog.Int("rows", prepared.DataRows),
		slog.Int("blank", prepared.Blank),
		slog.Int("invalid", prepared.Invalid),
		slog.Int("valid", len(prepared.Records)),
	)

	bulk, err := s.bulk.Import(ctx, prepared.Records)
	if err != nil {
		return ImportResult{ImportedCount: bulk.Imported, Errors: bulk.Errors}, err
	}
	return ImportResult{
		Success:       true,
		Message:       fmt.Sprintf("Successfully imported %d products", bulk.Imported),
		ImportedCount: bulk.Imported,
		Errors:        bulk.Errors,
	}, nil
}

// Prepare maps the grid header, drops rows with a blank first cell and keeps
// the rows that validate. It fails with sheets.ErrEmptySource for grids
// without data rows and ErrNoValidRecords when nothing validates.
func Prepare(grid sheets.Grid, fields *FieldTable) (Prepared, error) {
	if len(grid) < 2 {
		return Prepared{}, sheets.ErrEmptySource
	}
	cols := fields.Map(grid.Header())
	rows := grid.DataRows()
	out := Prepared{DataRows: len(rows)}
	for i, row := range rows {
		if rowBlank(row) {
			out.Blank++
			continue
		}
		rec := NormalizeRow(row, cols)
		rec.Row = i + 2
		if !IsValid(rec) {
			out.Invalid++
			continue
		}
		out.Records = append(out.Records, rec)
	}
	if len(out.Records) == 0 {
		return out, ErrNoValidRecords
	}
	return out, nil
}

// Failure converts a fatal pipeline error into an HTTP status and result.
// Unclassified errors get a generic message.
func Failure(err error) (int, ImportResult) {
	status, msg := http.StatusInternalServerError, "Import failed due to an internal error"
	var srcErr *sheets.SourceError
	switch {
	case errors.Is(err, ErrMissingURL):
		status, msg = http.StatusBadRequest, "Spreadsheet URL is required"
	case errors.Is(err, sheets.ErrInvalidReference):
		status, msg = http.StatusBadRequest, "Invalid URL format, use a spreadsheet share link"
	case errors.Is(err, sheets.ErrEmptySource):
		status, msg = http.StatusBadRequest, "No data in sheet"
	case errors.Is(err, ErrNoValidRecords):
		status, msg = http.StatusBadRequest, "No valid products found in sheet. Make sure it has name, brand and price columns"
	case errors.As(err, &srcErr) && srcErr.SignIn:
		status, msg = http.StatusForbidden, "Sheet requires sign-in. Share it with anyone who has the link"
	case errors.As(err, &srcErr) && srcErr.AccessDenied():
		status, msg = http.StatusForbidden, fmt.Sprintf("Sheet is not accessible (status %d). Share it with anyone who has the link", srcErr.Status)
	case errors.Is(err, sheets.ErrSourceUnavailable):
		status, msg = http.StatusBadGateway, "Sheet could not be downloaded"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "Import timed out"
	}
	return status, ImportResult{Success: false, Message: msg}
}

// PartialFailure is Failure for an error raised during the bulk stage. The
// result keeps the counts of partial, the rows written before err.
func PartialFailure(partial ImportResult, err error) (int, ImportResult) {
	status, res := Failure(err)
	res.ImportedCount = partial.ImportedCount
	res.Errors = partial.Errors
	if res.ImportedCount > 0 {
		res.Message = fmt.Sprintf("%s after %d products were imported", res.Message, res.ImportedCount)
	}
	return status, res
}

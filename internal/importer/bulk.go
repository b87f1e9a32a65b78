package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/productsheet/internal/catalog"
)

// Store opens write sessions on the product store.
type Store interface {
	Acquire(ctx context.Context) (catalog.Session, error)
}

// BulkResult tallies one bulk run.
type BulkResult struct {
	Imported int
	Errors   []string
}

// BulkImporter creates records one by one through a single store session.
type BulkImporter struct {
	store  Store
	logger *slog.Logger
}

// NewBulkImporter wires a BulkImporter to store.
func NewBulkImporter(store Store, logger *slog.Logger) *BulkImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkImporter{store: store, logger: logger}
}

// Import creates every record in order. A failed record is reported in the
// result and does not stop the run. The error return is reserved for a store
// that cannot be reached and for cancellation, in which case the result holds
// the records processed so far.
func (b *BulkImporter) Import(ctx context.Context, records []Record) (BulkResult, error) {
	res := BulkResult{}
	if len(records) == 0 {
		return res, nil
	}

	sess, err := b.store.Acquire(ctx)
	if err != nil {
		return res, fmt.Errorf("importer: open store session: %w", err)
	}
	defer sess.Release()

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("importer: bulk import interrupted: %w", err)
		}
		if _, err := sess.Create(ctx, rec.Draft()); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf(`Failed to import product "%s": %v`, rec.Name, err))
			b.logger.Warn("product import failed",
				slog.Int("row", rec.Row),
				slog.String("name", rec.Name),
				slog.Any("error", err),
			)
			continue
		}
		res.Imported++
	}
	return res, nil
}

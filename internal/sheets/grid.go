package sheets

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Grid is a tab's content: row 0 holds the headers, the rest are data rows.
// Rows may have different lengths.
type Grid [][]string

// Header returns the first row, or nil for an empty grid.
func (g Grid) Header() []string {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

// DataRows returns every row after the header.
func (g Grid) DataRows() [][]string {
	if len(g) < 2 {
		return nil
	}
	return g[1:]
}

// ParseCSV reads comma separated text into a Grid. Cells are trimmed, empty
// lines are skipped and malformed records are logged and dropped instead of
// failing the whole parse. Rows of blank cells such as ",," are kept.
func ParseCSV(r io.Reader, logger *slog.Logger) (Grid, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var grid Grid
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				logger.Warn("csv row skipped", slog.Int("line", parseErr.Line), slog.Any("error", parseErr.Err))
				continue
			}
			return nil, fmt.Errorf("sheets: read csv: %w", err)
		}
		if row, ok := trimRow(record); ok {
			grid = append(grid, row)
		}
	}
	return grid, nil
}

// trimRow trims every cell. It reports false for an empty line, a record
// holding a single blank cell.
func trimRow(record []string) ([]string, bool) {
	row := make([]string, len(record))
	for i, cell := range record {
		row[i] = strings.TrimSpace(cell)
	}
	return row, !(len(row) == 1 && row[0] == "")
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

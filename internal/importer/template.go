package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Template formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnknownFormat reports an unsupported template format.
var ErrUnknownFormat = errors.New("importer: unknown template format")

const templateSheet = "Products"

// TemplateHeaders lists the column headers of a blank import sheet: the core
// fields first, then every attribute known to the table.
func TemplateHeaders(fields *FieldTable) []string {
	headers := []string{string(FieldName), string(FieldBrand), string(FieldPrice)}
	return append(headers, fields.AttributeKeys()...)
}

// Template renders a blank import sheet with one example row.
func Template(fields *FieldTable, format string) ([]byte, string, error) {
	headers := TemplateHeaders(fields)
	example := make([]string, len(headers))
	example[0], example[1], example[2] = "Example product", "Example brand", "1500"

	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.WriteAll([][]string{headers, example}); err != nil {
			return nil, "", fmt.Errorf("importer: write csv template: %w", err)
		}
		return buf.Bytes(), "text/csv; charset=utf-8", nil
	case FormatXLSX:
		body, err := xlsxTemplate(headers, example)
		if err != nil {
			return nil, "", err
		}
		return body, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func xlsxTemplate(headers, example []string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, fmt.Errorf("importer: xlsx sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("importer: xlsx style: %w", err)
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("importer: xlsx cell: %w", err)
		}
		if err := f.SetCellStr(templateSheet, cell, h); err != nil {
			return nil, fmt.Errorf("importer: xlsx header: %w", err)
		}
		if example[i] != "" {
			row2, _ := excelize.CoordinatesToCellName(i+1, 2)
			if err := f.SetCellStr(templateSheet, row2, example[i]); err != nil {
				return nil, fmt.Errorf("importer: xlsx example: %w", err)
			}
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(templateSheet, "A", lastCol, 20); err != nil {
		return nil, fmt.Errorf("importer: xlsx width: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(templateSheet, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("importer: xlsx header style: %w", err)
	}
	if err := f.SetPanes(templateSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("importer: xlsx panes: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("importer: xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

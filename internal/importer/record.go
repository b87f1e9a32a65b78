package importer

import (
	"strconv"
	"strings"

	"github.com/odyssey-erp/productsheet/internal/catalog"
)

// Record is one normalized data row. Price is nil when the row had no price
// cell at all.
type Record struct {
	Row        int
	Name       string
	Brand      string
	Price      *float64
	Attributes map[string]string
}

// Draft converts the record into catalog input.
func (r Record) Draft() catalog.Draft {
	var attrs map[string]string
	if len(r.Attributes) > 0 {
		attrs = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			attrs[k] = v
		}
	}
	return catalog.Draft{Name: r.Name, Brand: r.Brand, Price: r.Price, Attributes: attrs}
}

// NormalizeRow builds a Record from a data row. Absent and blank cells leave
// their field unset; when several columns feed one field the last non-blank
// one wins.
func NormalizeRow(row []string, cols ColumnMap) Record {
	var rec Record
	for _, col := range cols {
		if col.Index >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col.Index])
		if value == "" {
			continue
		}
		switch col.Field {
		case FieldName:
			rec.Name = value
		case FieldBrand:
			rec.Brand = value
		case FieldPrice:
			p := ParsePrice(value)
			rec.Price = &p
		default:
			if rec.Attributes == nil {
				rec.Attributes = make(map[string]string)
			}
			rec.Attributes[string(col.Field)] = value
		}
	}
	return rec
}

// ParsePrice reads a human formatted price. Everything except digits, dots
// and commas is dropped, the first comma becomes the decimal point and the
// longest leading decimal number is parsed. Text without a number yields 0.
//
//	"1 234,56 ₴" -> 1234.56
//	"$12.50"     -> 12.5
//	"abc"        -> 0
func ParsePrice(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Replace(b.String(), ",", ".", 1)

	end, dot := 0, false
	for ; end < len(cleaned); end++ {
		c := cleaned[end]
		if c == ',' || (c == '.' && dot) {
			break
		}
		if c == '.' {
			dot = true
		}
	}
	number := strings.TrimSuffix(cleaned[:end], ".")
	if strings.Trim(number, ".") == "" {
		return 0
	}
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0
	}
	return v
}

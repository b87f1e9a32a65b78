package importer

import "strings"

// IsValid reports whether rec carries the fields a product needs. A zero
// price is valid; a missing price is not.
func IsValid(rec Record) bool {
	return rec.Name != "" && rec.Brand != "" && rec.Price != nil
}

// rowBlank reports whether a data row should be dropped before mapping: its
// first cell is absent or blank.
func rowBlank(row []string) bool {
	return len(row) == 0 || strings.TrimSpace(row[0]) == ""
}

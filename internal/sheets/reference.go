// Package sheets locates hosted spreadsheets and downloads their tabs as
// string grids through the unauthenticated export endpoint.
package sheets

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultGID selects the first tab of a document.
const DefaultGID = "0"

var (
	spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	gidPattern           = regexp.MustCompile(`[#&?]gid=([0-9]+)`)
)

// Reference addresses one tab of one spreadsheet document.
type Reference struct {
	SpreadsheetID string
	GID           string
}

// ParseReference extracts the spreadsheet identifier and tab selector from a
// share or edit link. Only a missing identifier is an error; the tab falls
// back to DefaultGID.
func ParseReference(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	id, ok := ExtractSpreadsheetID(raw)
	if !ok {
		return Reference{}, fmt.Errorf("%w: %q has no /spreadsheets/d/<id> segment", ErrInvalidReference, raw)
	}
	return Reference{SpreadsheetID: id, GID: ExtractGID(raw)}, nil
}

// ExtractSpreadsheetID returns the document key following /spreadsheets/d/.
func ExtractSpreadsheetID(raw string) (string, bool) {
	match := spreadsheetIDPattern.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ExtractGID returns the gid query or fragment parameter, or DefaultGID.
func ExtractGID(raw string) string {
	match := gidPattern.FindStringSubmatch(raw)
	if match == nil {
		return DefaultGID
	}
	return match[1]
}

func (r Reference) String() string {
	return r.SpreadsheetID + "#gid=" + r.GID
}

package sheets

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidReference reports a link without a spreadsheet identifier.
	ErrInvalidReference = errors.New("sheets: invalid spreadsheet reference")
	// ErrSourceUnavailable reports an export that could not be retrieved.
	ErrSourceUnavailable = errors.New("sheets: source unavailable")
	// ErrEmptySource reports an export without a header and at least one data row.
	ErrEmptySource = errors.New("sheets: no data in sheet")
)

// SourceError carries the upstream status of a failed export download.
type SourceError struct {
	Status int
	// SignIn is set when the upstream answered with an HTML sign-in page
	// instead of the export, which is how private documents respond.
	SignIn bool
	Reason string
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s: upstream status %d", ErrSourceUnavailable, e.Status)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return ErrSourceUnavailable
}

// AccessDenied reports whether the document exists but is not shared publicly,
// or is not visible at all.
func (e *SourceError) AccessDenied() bool {
	if e == nil {
		return false
	}
	if e.SignIn {
		return true
	}
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

package importer

import "errors"

var (
	// ErrMissingURL reports an import request without a link.
	ErrMissingURL = errors.New("importer: spreadsheet url is required")
	// ErrNoValidRecords reports a sheet whose rows all failed validation.
	ErrNoValidRecords = errors.New("importer: no valid products found in sheet")
)

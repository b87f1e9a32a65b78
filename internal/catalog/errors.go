package catalog

import (
	"fmt"

	"github.com/odyssey-erp/productsheet/internal/platform/httpx"
)

// Errors returned by the catalog. They wrap the httpx sentinels so handlers
// can classify them with httpx.RespondError.
var (
	ErrNotFound   = fmt.Errorf("catalog: product %w", httpx.ErrNotFound)
	ErrDuplicate  = fmt.Errorf("catalog: product %w", httpx.ErrDuplicate)
	ErrValidation = fmt.Errorf("catalog: %w", httpx.ErrValidation)
)

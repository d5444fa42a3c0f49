package marimo2confluence

import "errors"

// Sentinel errors for library operations.
var (
	ErrEmptyHTML         = errors.New("HTML content cannot be empty")
	ErrMissingPageTarget = errors.New("either PageID or ParentID is required")
)

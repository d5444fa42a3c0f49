package main

import (
	"errors"
	"os"

	marimo2confluence "github.com/alnah/go-marimo2confluence"
	"github.com/alnah/go-marimo2confluence/internal/confluence"
	"github.com/alnah/go-marimo2confluence/internal/mountcfg"
	"github.com/alnah/go-marimo2confluence/internal/vega"
)

// Exit codes for the CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful conversion
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
	ExitExtract = 5 // Export carries no usable notebook config
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, vega.ErrBrowserConnect) ||
		errors.Is(err, vega.ErrPageCreate) ||
		errors.Is(err, vega.ErrPageLoad) {
		return ExitBrowser
	}

	// Extraction errors (exit 5)
	if errors.Is(err, mountcfg.ErrConfigNotFound) ||
		errors.Is(err, mountcfg.ErrInvalidConfig) {
		return ExitExtract
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrConfigParse) ||
		errors.Is(err, ErrMissingSite) ||
		errors.Is(err, ErrNoCommand) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrNoPageTarget) ||
		errors.Is(err, marimo2confluence.ErrEmptyHTML) ||
		errors.Is(err, marimo2confluence.ErrMissingPageTarget) ||
		errors.Is(err, confluence.ErrMissingBaseURL) ||
		errors.Is(err, confluence.ErrMissingAuth) {
		return ExitUsage
	}

	return ExitGeneral
}

package marimo2confluence

import (
	"time"
)

// Input contains conversion parameters.
type Input struct {
	HTML     string // marimo export HTML (required)
	PageID   string // existing page to update (optional)
	ParentID string // parent page for a new page (required if no PageID)
	Title    string // page title (optional, derived from the notebook if empty)
}

// ConvertResult describes the published page.
type ConvertResult struct {
	ID      string
	Title   string
	Version int
	Status  string
	URL     string
}

// PreviewInfo summarizes an export without publishing it.
type PreviewInfo struct {
	Filename    string
	Version     string
	CellCount   int
	OutputCount int
	OutputTypes map[string]int
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	baseURL    string
	email      string
	apiToken   string
	timeout    time.Duration
	chartScale float64
}

// Defaults for converter configuration.
const (
	defaultTimeout    = 30 * time.Second
	defaultChartScale = 2.0
)

// WithConfluence sets the Confluence site and credentials. Required for
// Convert; Preview works without it.
func WithConfluence(baseURL, email, apiToken string) Option {
	return func(c *Converter) {
		c.cfg.baseURL = baseURL
		c.cfg.email = email
		c.cfg.apiToken = apiToken
	}
}

// WithTimeout sets the per-chart rendering timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("marimo2confluence: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithChartScale sets the raster scale factor for rendered charts.
// Panics if scale <= 0.
func WithChartScale(scale float64) Option {
	if scale <= 0 {
		panic("marimo2confluence: WithChartScale scale must be positive")
	}
	return func(c *Converter) {
		c.cfg.chartScale = scale
	}
}

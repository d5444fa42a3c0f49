// Package vega renders Vega-Lite specifications to PNG images using
// headless Chrome.
//
// The renderer loads a minimal vega-embed page, waits for the embed
// promise to settle, and screenshots the chart element. Rod downloads
// Chromium on first run if no browser is found.
package vega

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Sentinel errors for chart rendering.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrChartRender    = errors.New("chart rendering failed")
	ErrInvalidSpec    = errors.New("invalid chart spec")
)

// DefaultScale doubles resolution so charts stay crisp on the page.
const DefaultScale = 2.0

// defaultTimeout bounds a single render when the context carries no
// deadline.
const defaultTimeout = 30 * time.Second

// Viewport for the embed page. Charts lay themselves out inside it; the
// screenshot clips to the chart element.
const (
	viewportWidth  = 1400
	viewportHeight = 1000
)

// embedTemplate is the page shell. The embed promise flips a flag the
// renderer polls; a rejection records the reason instead.
const embedTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<script src="https://cdn.jsdelivr.net/npm/vega@5"></script>
<script src="https://cdn.jsdelivr.net/npm/vega-lite@5"></script>
<script src="https://cdn.jsdelivr.net/npm/vega-embed@6"></script>
<style>body { margin: 0; background: white; } #vis { display: inline-block; }</style>
</head>
<body>
<div id="vis"></div>
<script>
vegaEmbed('#vis', %s, {actions: false})
  .then(function() { window.__vegaDone = true; })
  .catch(function(err) { window.__vegaError = String(err); });
</script>
</body>
</html>`

// Renderer renders chart specs through a lazily connected browser.
// Not safe for concurrent use; the pipeline renders sequentially.
type Renderer struct {
	browser *rod.Browser
	timeout time.Duration
	scale   float64
}

// NewRenderer creates a Renderer with the given timeout and scale.
// Zero values fall back to defaultTimeout and DefaultScale.
func NewRenderer(timeout time.Duration, scale float64) *Renderer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Renderer{timeout: timeout, scale: scale}
}

// ensureBrowser lazily connects to the browser.
func (r *Renderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (r *Renderer) Close() error {
	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

// Render renders a spec to a temporary PNG file and returns its path.
// The caller owns the file. Deterministic for a given spec and scale.
func (r *Renderer) Render(ctx context.Context, spec map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(spec) == 0 {
		return "", ErrInvalidSpec
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	png, err := r.renderPNG(ctx, string(specJSON))
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "chart-*.png")
	if err != nil {
		return "", fmt.Errorf("creating chart file: %w", err)
	}
	if _, err := f.Write(png); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing chart file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing chart file: %w", err)
	}
	return f.Name(), nil
}

// renderPNG loads the embed page and screenshots the chart element.
func (r *Renderer) renderPNG(ctx context.Context, specJSON string) ([]byte, error) {
	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	pagePath, cleanup, err := writeEmbedPage(specJSON)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + pagePath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	page = page.Timeout(timeout)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: r.scale,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	// Wait for the embed promise to settle either way.
	if err := page.Wait(rod.Eval(`() => window.__vegaDone === true || window.__vegaError !== undefined`)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChartRender, err)
	}

	res, err := page.Eval(`() => window.__vegaError || ""`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChartRender, err)
	}
	if msg := res.Value.Str(); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrChartRender, msg)
	}

	el, err := page.Element("#vis")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChartRender, err)
	}

	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChartRender, err)
	}
	return png, nil
}

// Dimensions returns the pixel size of a rendered PNG.
func (r *Renderer) Dimensions(path string) (width, height int, err error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from our own temp files
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// writeEmbedPage writes the embed shell with the spec inlined. The spec
// JSON is escaped so a literal </script> inside string data cannot
// terminate the script block early.
func writeEmbedPage(specJSON string) (string, func(), error) {
	escaped := strings.ReplaceAll(specJSON, "</", `<\/`)
	content := fmt.Sprintf(embedTemplate, escaped)

	f, err := os.CreateTemp("", "vega-embed-*.html")
	if err != nil {
		return "", nil, fmt.Errorf("creating embed page: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("writing embed page: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("writing embed page: %w", err)
	}

	cleanup := func() { _ = os.Remove(f.Name()) }
	return f.Name(), cleanup, nil
}

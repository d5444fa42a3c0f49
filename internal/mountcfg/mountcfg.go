// Package mountcfg recovers a marimo notebook's mount config from an
// exported HTML file.
//
// A marimo HTML export embeds the notebook structure and its last
// execution session as a JSON-like object literal assigned to
// window.__MARIMO_MOUNT_CONFIG__ inside a script block. The literal is a
// JSON superset (the exporter emits trailing commas), so extraction
// applies one repair pass before decoding.
package mountcfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for config extraction.
var (
	ErrConfigNotFound = errors.New("__MARIMO_MOUNT_CONFIG__ not found in HTML")
	ErrInvalidConfig  = errors.New("invalid JSON in __MARIMO_MOUNT_CONFIG__")
)

// MountConfig is the recovered notebook state.
//
// Notebook.Cells carries the canonical cell order; Session.Cells carries
// per-cell execution records keyed by the same opaque ids, in no
// particular order.
type MountConfig struct {
	Filename string   `json:"filename"`
	Version  string   `json:"version"`
	Notebook Notebook `json:"notebook"`
	Session  Session  `json:"session"`
}

// Notebook is the structural half of the config.
type Notebook struct {
	Cells []NotebookCell `json:"cells"`
}

// NotebookCell identifies one cell in notebook order.
type NotebookCell struct {
	ID string `json:"id"`
}

// Session is the execution half of the config.
type Session struct {
	Cells []SessionCell `json:"cells"`
}

// SessionCell is one cell's execution record.
type SessionCell struct {
	ID      string      `json:"id"`
	Outputs []RawOutput `json:"outputs"`
}

// RawOutput is one emitted output as stored in the session. Data values
// are heterogeneous (strings for text representations, objects for chart
// specs), so they stay raw until the collector types them.
type RawOutput struct {
	Type string                     `json:"type"`
	Data map[string]json.RawMessage `json:"data"`
}

// configPattern locates the mount config assignment. Non-greedy so the
// match stops at the first closing brace followed by the end of the
// script block rather than swallowing later scripts.
var configPattern = regexp.MustCompile(`window\.__MARIMO_MOUNT_CONFIG__\s*=\s*(\{[\s\S]*?\});?\s*</script>`)

// trailingCommaPattern matches a comma whose next non-whitespace
// character closes an object or array. JavaScript allows these, JSON
// does not.
var trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

// Extract recovers the mount config from raw HTML.
//
// The only repair applied to the matched literal is trailing-comma
// removal; any other malformedness surfaces as ErrInvalidConfig wrapping
// the original parse error. Extract is pure: the same input always yields
// the same config or the same failure.
func Extract(html string) (*MountConfig, error) {
	m := configPattern.FindStringSubmatch(html)
	if m == nil {
		return nil, ErrConfigNotFound
	}

	repaired := trailingCommaPattern.ReplaceAllString(m[1], "$1")

	var cfg MountConfig
	if err := json.Unmarshal([]byte(repaired), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

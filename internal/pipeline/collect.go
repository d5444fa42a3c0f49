package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/alnah/go-marimo2confluence/internal/mountcfg"
)

// OutputType classifies a cell output's payload.
type OutputType string

// Output types, in priority order. When one raw output carries several
// representations the richest wins: markdown renders fully, a chart spec
// renders to an image, HTML can still yield embedded charts, and plain
// text is the floor.
const (
	OutputMarkdown OutputType = "markdown"
	OutputVegaLite OutputType = "vegalite"
	OutputHTML     OutputType = "html"
	OutputPlain    OutputType = "plain"
)

// Media type keys in a session output's data map.
const (
	mimeMarkdown = "text/markdown"
	mimeHTML     = "text/html"
	mimePlain    = "text/plain"

	// vegaLitePrefix matches any versioned vegalite media type
	// (application/vnd.vegalite.v3+json and later).
	vegaLitePrefix = "application/vnd.vegalite.v"
)

// CellOutput is one renderable output. Exactly one of Text or Spec is
// populated depending on Type: Spec for vegalite, Text otherwise.
// Immutable once created; the assembler consumes each exactly once.
type CellOutput struct {
	CellID string
	Type   OutputType
	Text   string
	Spec   map[string]any
}

// CollectOutputs walks the mount config and returns renderable outputs in
// notebook-cell order. Session-cell order is irrelevant: notebook order
// is authoritative. A notebook cell with no session record contributes
// nothing, as does any output that is empty, degenerate, or matches no
// known representation.
func CollectOutputs(cfg *mountcfg.MountConfig) []CellOutput {
	sessionByID := make(map[string]mountcfg.SessionCell, len(cfg.Session.Cells))
	for _, sc := range cfg.Session.Cells {
		sessionByID[sc.ID] = sc
	}

	var outputs []CellOutput

	for _, nb := range cfg.Notebook.Cells {
		sc, ok := sessionByID[nb.ID]
		if !ok {
			continue
		}

		for _, raw := range sc.Outputs {
			if raw.Type != "data" {
				continue
			}
			if out, ok := typeOutput(nb.ID, raw.Data); ok {
				outputs = append(outputs, out)
			}
		}
	}

	return outputs
}

// typeOutput applies the type-priority rule to one raw data map.
// Returns false for empty, degenerate, or unmatched outputs.
func typeOutput(cellID string, data map[string]json.RawMessage) (CellOutput, bool) {
	if len(data) == 0 {
		return CellOutput{}, false
	}
	if len(data) == 1 {
		if s, ok := decodeString(data[mimePlain]); ok && s == "" {
			return CellOutput{}, false
		}
	}

	if raw, ok := data[mimeMarkdown]; ok {
		if s, ok := decodeString(raw); ok {
			return CellOutput{CellID: cellID, Type: OutputMarkdown, Text: s}, true
		}
	}

	if raw, ok := vegaLiteEntry(data); ok {
		if spec, ok := decodeSpec(raw); ok {
			return CellOutput{CellID: cellID, Type: OutputVegaLite, Spec: spec}, true
		}
	}

	if raw, ok := data[mimeHTML]; ok {
		if s, ok := decodeString(raw); ok {
			return CellOutput{CellID: cellID, Type: OutputHTML, Text: s}, true
		}
	}

	if raw, ok := data[mimePlain]; ok {
		if s, ok := decodeString(raw); ok && strings.TrimSpace(s) != "" {
			return CellOutput{CellID: cellID, Type: OutputPlain, Text: s}, true
		}
	}

	return CellOutput{}, false
}

// vegaLiteEntry returns the first vegalite-keyed value, if any.
// Key order within a single output is not significant: marimo emits at
// most one vegalite representation per output.
func vegaLiteEntry(data map[string]json.RawMessage) (json.RawMessage, bool) {
	for k, v := range data {
		if IsVegaLiteMime(k) {
			return v, true
		}
	}
	return nil, false
}

// IsVegaLiteMime reports whether the media type is a versioned vegalite
// type (v3 and later all share the prefix).
func IsVegaLiteMime(mime string) bool {
	return strings.HasPrefix(mime, vegaLitePrefix)
}

// decodeString decodes a raw data value as a JSON string.
func decodeString(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeSpec decodes a chart spec that may arrive either as a JSON object
// or as a string containing JSON.
func decodeSpec(raw json.RawMessage) (map[string]any, bool) {
	var spec map[string]any
	if err := json.Unmarshal(raw, &spec); err == nil {
		return spec, true
	}
	s, ok := decodeString(raw)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(s), &spec); err != nil {
		return nil, false
	}
	return spec, true
}

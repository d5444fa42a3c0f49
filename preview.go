package marimo2confluence

import (
	"github.com/alnah/go-marimo2confluence/internal/mountcfg"
	"github.com/alnah/go-marimo2confluence/internal/pipeline"
)

// Preview extracts and summarizes a marimo export without rendering
// charts or touching the network. It shares Convert's extraction and
// collection stages, so a clean preview means the export will at least
// parse end to end.
func (c *Converter) Preview(html string) (*PreviewInfo, error) {
	if html == "" {
		return nil, ErrEmptyHTML
	}

	cfg, err := mountcfg.Extract(html)
	if err != nil {
		return nil, err
	}

	outputs := pipeline.CollectOutputs(cfg)

	types := make(map[string]int)
	for _, out := range outputs {
		types[string(out.Type)]++
	}

	return &PreviewInfo{
		Filename:    cfg.Filename,
		Version:     cfg.Version,
		CellCount:   len(cfg.Notebook.Cells),
		OutputCount: len(outputs),
		OutputTypes: types,
	}, nil
}

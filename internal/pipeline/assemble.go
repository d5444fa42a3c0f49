package pipeline

import (
	"context"
	"fmt"

	"github.com/alnah/go-marimo2confluence/internal/adf"
)

// Node is one entry in the assembled body: either finished ADF content or
// a stand-in for a chart image awaiting upload. The variant is decided at
// construction and never mutated; resolution is a mapping pass that
// produces a fresh list.
type Node interface {
	isNode()
}

// ContentNode wraps a finished ADF node.
type ContentNode struct {
	ADF adf.Node
}

// ChartPlaceholder marks where a chart's media node will go once the
// chart is uploaded. Key ties it to exactly one PendingChart.
type ChartPlaceholder struct {
	Key string
}

func (ContentNode) isNode()      {}
func (ChartPlaceholder) isNode() {}

// PendingChart is a chart rendered to a raster file but not yet uploaded.
// The pipeline owns the file at Path until resolution disposes of it.
// Width and Height are zero when dimensions were not probed.
type PendingChart struct {
	Path   string
	Key    string
	Width  int
	Height int
}

// ChartRenderer renders a chart spec to a raster file and reports image
// dimensions.
type ChartRenderer interface {
	// Render writes the spec to a temporary PNG and returns its path.
	Render(ctx context.Context, spec map[string]any) (string, error)
	// Dimensions returns the pixel size of a rendered file.
	Dimensions(path string) (width, height int, err error)
}

// NodeConverter converts an HTML fragment into ADF nodes. It must be
// total: malformed HTML degrades instead of failing.
type NodeConverter func(fragment string) []adf.Node

// Assembler converts collected outputs into body nodes. The chart counter
// is document-global so one cell emitting several charts still gets
// unique keys.
type Assembler struct {
	markdown MarkdownRenderer
	toNodes  NodeConverter
	charts   ChartRenderer
	counter  int
}

// NewAssembler creates an Assembler over the given collaborators.
func NewAssembler(markdown MarkdownRenderer, toNodes NodeConverter, charts ChartRenderer) *Assembler {
	return &Assembler{
		markdown: markdown,
		toNodes:  toNodes,
		charts:   charts,
	}
}

// Assemble converts outputs in order into body nodes plus the charts
// queued for upload. Within an HTML output, converted content precedes
// its chart placeholders; across outputs, source order is preserved.
//
// A chart whose spec fails to render is skipped without aborting the
// rest of the document. Errors are reserved for context cancellation and
// markdown rendering failures.
func (a *Assembler) Assemble(ctx context.Context, outputs []CellOutput) ([]Node, []PendingChart, error) {
	var nodes []Node
	var pending []PendingChart

	for _, out := range outputs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		switch out.Type {
		case OutputMarkdown:
			rendered, err := a.markdown.ToHTML(ctx, out.Text)
			if err != nil {
				return nil, nil, fmt.Errorf("rendering markdown output for cell %s: %w", out.CellID, err)
			}
			for _, n := range a.toNodes(rendered) {
				nodes = append(nodes, ContentNode{ADF: n})
			}

		case OutputHTML:
			converted, charts := a.assembleHTML(ctx, out)
			nodes = append(nodes, converted...)
			pending = append(pending, charts...)

		case OutputVegaLite:
			path, err := a.charts.Render(ctx, out.Spec)
			if err != nil {
				continue
			}
			pending = append(pending, PendingChart{Path: path, Key: out.CellID})
			nodes = append(nodes, ChartPlaceholder{Key: out.CellID})

		case OutputPlain:
			nodes = append(nodes, ContentNode{ADF: adf.Paragraph(out.Text)})
		}
	}

	return nodes, pending, nil
}

// assembleHTML handles one html-typed output: extract embedded charts,
// render each, strip the chart markup, convert the remaining fragment,
// and append one placeholder per rendered chart after the content.
func (a *Assembler) assembleHTML(ctx context.Context, out CellOutput) ([]Node, []PendingChart) {
	found := FindEmbeddedCharts(out.Text)

	var charts []PendingChart
	for _, ec := range found {
		path, err := a.charts.Render(ctx, ec.Spec)
		if err != nil {
			continue
		}

		chart := PendingChart{
			Path: path,
			Key:  fmt.Sprintf("%s_%d", out.CellID, a.counter),
		}
		a.counter++

		// Dimensions are best-effort; the resolver falls back to the
		// image's natural size without them.
		if w, h, err := a.charts.Dimensions(path); err == nil {
			chart.Width = w
			chart.Height = h
		}
		charts = append(charts, chart)
	}

	// Only strip when something was found: a fragment with no chart
	// markup should not take a lossy round-trip through the serializer.
	fragment := out.Text
	if len(found) > 0 {
		fragment = StripEmbeddedCharts(fragment)
	}

	var nodes []Node
	for _, n := range a.toNodes(fragment) {
		nodes = append(nodes, ContentNode{ADF: n})
	}
	for _, chart := range charts {
		nodes = append(nodes, ChartPlaceholder{Key: chart.Key})
	}
	return nodes, charts
}

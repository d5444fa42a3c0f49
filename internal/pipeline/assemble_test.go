package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alnah/go-marimo2confluence/internal/adf"
)

// fakeChartRenderer records rendered specs and hands out synthetic paths.
// Specs whose "mark" equals failMark fail to render.
type fakeChartRenderer struct {
	failMark string
	width    int
	height   int
	dimErr   error
	rendered []string
}

func (f *fakeChartRenderer) Render(_ context.Context, spec map[string]any) (string, error) {
	if mark, _ := spec["mark"].(string); mark != "" && mark == f.failMark {
		return "", errors.New("render failed")
	}
	path := fmt.Sprintf("/tmp/fake-chart-%d.png", len(f.rendered))
	f.rendered = append(f.rendered, path)
	return path, nil
}

func (f *fakeChartRenderer) Dimensions(string) (int, int, error) {
	if f.dimErr != nil {
		return 0, 0, f.dimErr
	}
	return f.width, f.height, nil
}

// passthroughNodes converts a fragment into one paragraph per
// non-empty line, enough structure for assembly tests.
func passthroughNodes(fragment string) []adf.Node {
	var nodes []adf.Node
	for _, line := range strings.Split(fragment, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			nodes = append(nodes, adf.Paragraph(s))
		}
	}
	return nodes
}

func newTestAssembler(charts ChartRenderer) *Assembler {
	return NewAssembler(NewGoldmarkRenderer(), passthroughNodes, charts)
}

func TestAssemblePlainOutput(t *testing.T) {
	t.Parallel()

	a := newTestAssembler(&fakeChartRenderer{})
	nodes, pending, err := a.Assemble(context.Background(), []CellOutput{
		{CellID: "a", Type: OutputPlain, Text: "hello"},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0", len(pending))
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}
	cn, ok := nodes[0].(ContentNode)
	if !ok {
		t.Fatalf("nodes[0] is %T, want ContentNode", nodes[0])
	}
	if cn.ADF["type"] != "paragraph" {
		t.Errorf(`node type = %v, want "paragraph"`, cn.ADF["type"])
	}
	if got := adf.TextContent(cn.ADF); got != "hello" {
		t.Errorf("text = %q, want %q", got, "hello")
	}
}

func TestAssembleMarkdownOutput(t *testing.T) {
	t.Parallel()

	a := newTestAssembler(&fakeChartRenderer{})
	nodes, _, err := a.Assemble(context.Background(), []CellOutput{
		{CellID: "a", Type: OutputMarkdown, Text: "# Title"},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(nodes) == 0 {
		t.Fatal("no nodes produced from markdown output")
	}
	cn, ok := nodes[0].(ContentNode)
	if !ok {
		t.Fatalf("nodes[0] is %T, want ContentNode", nodes[0])
	}
	// passthroughNodes wraps the rendered HTML lines; the heading text
	// must have survived the markdown pass.
	if !strings.Contains(adf.TextContent(cn.ADF), "Title") {
		t.Errorf("rendered markdown lost heading text: %v", cn.ADF)
	}
}

func TestAssembleVegaLiteOutput(t *testing.T) {
	t.Parallel()

	charts := &fakeChartRenderer{}
	a := newTestAssembler(charts)
	nodes, pending, err := a.Assemble(context.Background(), []CellOutput{
		{CellID: "cell-7", Type: OutputVegaLite, Spec: map[string]any{"mark": "bar"}},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].Key != "cell-7" {
		t.Errorf("pending key = %q, want %q", pending[0].Key, "cell-7")
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}
	ph, ok := nodes[0].(ChartPlaceholder)
	if !ok {
		t.Fatalf("nodes[0] is %T, want ChartPlaceholder", nodes[0])
	}
	if ph.Key != "cell-7" {
		t.Errorf("placeholder key = %q, want %q", ph.Key, "cell-7")
	}
}

func TestAssembleVegaLiteRenderFailureSkips(t *testing.T) {
	t.Parallel()

	a := newTestAssembler(&fakeChartRenderer{failMark: "bar"})
	nodes, pending, err := a.Assemble(context.Background(), []CellOutput{
		{CellID: "a", Type: OutputVegaLite, Spec: map[string]any{"mark": "bar"}},
		{CellID: "b", Type: OutputPlain, Text: "still here"},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0", len(pending))
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1 (the surviving plain output)", len(nodes))
	}
	if _, ok := nodes[0].(ContentNode); !ok {
		t.Errorf("nodes[0] is %T, want ContentNode", nodes[0])
	}
}

func TestAssembleHTMLWithEmbeddedCharts(t *testing.T) {
	t.Parallel()

	charts := &fakeChartRenderer{width: 640, height: 480}
	a := newTestAssembler(charts)

	fragment := `<p>intro</p>` + chartElement + chartElement
	nodes, pending, err := a.Assemble(context.Background(), []CellOutput{
		{CellID: "cellX", Type: OutputHTML, Text: fragment},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
	wantKeys := []string{"cellX_0", "cellX_1"}
	for i, want := range wantKeys {
		if pending[i].Key != want {
			t.Errorf("pending[%d].Key = %q, want %q", i, pending[i].Key, want)
		}
		if pending[i].Width != 640 || pending[i].Height != 480 {
			t.Errorf("pending[%d] dimensions = %dx%d, want 640x480", i, pending[i].Width, pending[i].Height)
		}
	}

	// Content first, then one placeholder per chart.
	var sawContent bool
	var placeholders []string
	for _, n := range nodes {
		switch v := n.(type) {
		case ContentNode:
			if len(placeholders) > 0 {
				t.Error("content node found after placeholders")
			}
			sawContent = true
		case ChartPlaceholder:
			placeholders = append(placeholders, v.Key)
		}
	}
	if !sawContent {
		t.Error("no content nodes produced from fragment prose")
	}
	if len(placeholders) != 2 || placeholders[0] != "cellX_0" || placeholders[1] != "cellX_1" {
		t.Errorf("placeholder keys = %v, want %v", placeholders, wantKeys)
	}
}

func TestAssembleChartKeysUniqueAcrossOutputs(t *testing.T) {
	t.Parallel()

	// Two html outputs from different cells share one document-global
	// counter, so keys never collide even across cells.
	a := newTestAssembler(&fakeChartRenderer{})
	_, pending, err := a.Assemble(context.Background(), []CellOutput{
		{CellID: "a", Type: OutputHTML, Text: chartElement},
		{CellID: "b", Type: OutputHTML, Text: chartElement},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
	if pending[0].Key != "a_0" || pending[1].Key != "b_1" {
		t.Errorf("keys = %q, %q; want %q, %q", pending[0].Key, pending[1].Key, "a_0", "b_1")
	}
}

func TestAssembleHTMLDimensionFailureTolerated(t *testing.T) {
	t.Parallel()

	a := newTestAssembler(&fakeChartRenderer{dimErr: errors.New("probe failed")})
	_, pending, err := a.Assemble(context.Background(), []CellOutput{
		{CellID: "a", Type: OutputHTML, Text: chartElement},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if pending[0].Width != 0 || pending[0].Height != 0 {
		t.Errorf("dimensions = %dx%d, want 0x0 when probing fails", pending[0].Width, pending[0].Height)
	}
}

func TestAssembleHTMLWithoutCharts(t *testing.T) {
	t.Parallel()

	a := newTestAssembler(&fakeChartRenderer{})
	nodes, pending, err := a.Assemble(context.Background(), []CellOutput{
		{CellID: "a", Type: OutputHTML, Text: "<p>just prose</p>"},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0", len(pending))
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}
}

func TestAssembleCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestAssembler(&fakeChartRenderer{})
	_, _, err := a.Assemble(ctx, []CellOutput{
		{CellID: "a", Type: OutputPlain, Text: "x"},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Assemble() error = %v, want context.Canceled", err)
	}
}

func TestAssembleEmptyOutputs(t *testing.T) {
	t.Parallel()

	a := newTestAssembler(&fakeChartRenderer{})
	nodes, pending, err := a.Assemble(context.Background(), nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(nodes) != 0 || len(pending) != 0 {
		t.Errorf("nodes = %d, pending = %d; want both empty", len(nodes), len(pending))
	}
}

package marimo2confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/alnah/go-marimo2confluence/internal/adf"
	"github.com/alnah/go-marimo2confluence/internal/confluence"
	"github.com/alnah/go-marimo2confluence/internal/mountcfg"
	"github.com/alnah/go-marimo2confluence/internal/pipeline"
	"github.com/alnah/go-marimo2confluence/internal/vega"
)

// Compile-time interface implementation checks.
// These ensure implementations satisfy their interfaces at compile time,
// catching signature mismatches before runtime.
var (
	_ pipeline.MarkdownRenderer   = (*pipeline.GoldmarkRenderer)(nil)
	_ pipeline.ChartRenderer      = (*vega.Renderer)(nil)
	_ pipeline.AttachmentUploader = (*storeUploader)(nil)
	_ pageStore                   = (*confluence.Client)(nil)
)

// pageStore abstracts the document store for testing.
type pageStore interface {
	GetPage(ctx context.Context, pageID string) (*confluence.Page, error)
	CreatePage(ctx context.Context, spaceID, parentID, title string, adfJSON []byte) (*confluence.Page, error)
	UpdatePage(ctx context.Context, pageID, spaceID, title string, version int, message string, adfJSON []byte) (*confluence.Page, error)
	UploadAttachment(ctx context.Context, pageID, filePath, comment string) (confluence.Attachment, error)
}

// chartRenderer abstracts chart rendering for testing.
type chartRenderer interface {
	pipeline.ChartRenderer
	Close() error
}

// Converter publishes marimo HTML exports as Confluence pages.
// Create with NewConverter, use Convert or Preview, and Close when done.
type Converter struct {
	cfg      converterConfig
	store    pageStore
	charts   chartRenderer
	markdown pipeline.MarkdownRenderer
	toNodes  pipeline.NodeConverter
}

// NewConverter creates a Converter with default configuration.
// Use options to customize behavior (e.g., WithConfluence, WithTimeout).
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg: converterConfig{
			timeout:    defaultTimeout,
			chartScale: defaultChartScale,
		},
		markdown: pipeline.NewGoldmarkRenderer(),
		toNodes:  adf.FromHTML,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Create collaborators if not injected (e.g., by tests)
	if c.store == nil {
		c.store = confluence.NewClient(c.cfg.baseURL, c.cfg.email, c.cfg.apiToken)
	}
	if c.charts == nil {
		c.charts = vega.NewRenderer(c.cfg.timeout, c.cfg.chartScale)
	}

	return c, nil
}

// Convert extracts the notebook from input.HTML, assembles its outputs
// into an ADF document, uploads rendered charts as attachments, and
// creates or updates the target page.
//
// With input.PageID the page is updated in place. Without it a new page
// is created under input.ParentID in two steps: a stub page first (an id
// is needed for attachment upload), then an update with the full content.
// Recovers from internal panics to prevent crashes from propagating to
// callers.
func (c *Converter) Convert(ctx context.Context, input Input) (result *ConvertResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	cfg, err := mountcfg.Extract(input.HTML)
	if err != nil {
		return nil, err
	}

	outputs := pipeline.CollectOutputs(cfg)

	assembler := pipeline.NewAssembler(c.markdown, c.toNodes, c.charts)
	nodes, pending, err := assembler.Assemble(ctx, outputs)
	if err != nil {
		return nil, err
	}

	// Charts are owned by this run until resolution disposes of them;
	// failing before that point must not leak temp files.
	resolved := false
	defer func() {
		if !resolved {
			discardPending(pending)
		}
	}()

	title := input.Title
	if title == "" {
		title = pipeline.FirstHeadingText(nodes)
	}
	if title == "" {
		title = titleFromFilename(cfg.Filename)
	}

	// The page title renders as the H1; a leading body heading would
	// duplicate it.
	nodes = pipeline.RemoveLeadingHeading(nodes)

	var page *confluence.Page
	if input.PageID != "" {
		page, err = c.updateExisting(ctx, input.PageID, title, nodes, pending)
	} else {
		page, err = c.createNew(ctx, input.ParentID, title, nodes, pending)
	}
	if err != nil {
		return nil, err
	}
	resolved = true

	return &ConvertResult{
		ID:      page.ID,
		Title:   page.Title,
		Version: page.Version.Number,
		Status:  page.Status,
		URL:     c.pageURL(page),
	}, nil
}

// updateExisting resolves charts against an existing page and replaces
// its content.
func (c *Converter) updateExisting(ctx context.Context, pageID, title string, nodes []pipeline.Node, pending []pipeline.PendingChart) (*confluence.Page, error) {
	current, err := c.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetching page %s: %w", pageID, err)
	}

	body, err := c.resolveBody(ctx, pageID, nodes, pending)
	if err != nil {
		return nil, err
	}

	page, err := c.store.UpdatePage(ctx, pageID, current.SpaceID, title, current.Version.Number+1, "Updated from marimo notebook", body)
	if err != nil {
		return nil, fmt.Errorf("updating page %s: %w", pageID, err)
	}
	return page, nil
}

// createNew creates a stub page under the parent, resolves charts against
// its id, and updates it with the full content. The intermediate stub is
// an accepted two-step construction: attachments need a page id.
func (c *Converter) createNew(ctx context.Context, parentID, title string, nodes []pipeline.Node, pending []pipeline.PendingChart) (*confluence.Page, error) {
	parent, err := c.store.GetPage(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("fetching parent page %s: %w", parentID, err)
	}

	stub, err := json.Marshal(adf.Document([]adf.Node{adf.Paragraph("Loading...")}))
	if err != nil {
		return nil, fmt.Errorf("encoding stub document: %w", err)
	}

	created, err := c.store.CreatePage(ctx, parent.SpaceID, parentID, title, stub)
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}

	body, err := c.resolveBody(ctx, created.ID, nodes, pending)
	if err != nil {
		return nil, err
	}

	page, err := c.store.UpdatePage(ctx, created.ID, parent.SpaceID, title, created.Version.Number+1, "Content from marimo notebook", body)
	if err != nil {
		return nil, fmt.Errorf("updating page %s: %w", created.ID, err)
	}
	return page, nil
}

// resolveBody uploads pending charts, resolves placeholders, and encodes
// the final document.
func (c *Converter) resolveBody(ctx context.Context, pageID string, nodes []pipeline.Node, pending []pipeline.PendingChart) ([]byte, error) {
	final, err := pipeline.ResolvePlaceholders(ctx, nodes, pending, &storeUploader{store: c.store}, pageID)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(adf.Document(final))
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return body, nil
}

// Close releases resources (headless Chrome browser).
func (c *Converter) Close() error {
	if c.charts != nil {
		return c.charts.Close()
	}
	return nil
}

// pageURL builds the human-facing URL of a page.
func (c *Converter) pageURL(page *confluence.Page) string {
	return fmt.Sprintf("%s/wiki/spaces/%s/pages/%s", c.cfg.baseURL, page.SpaceID, page.ID)
}

// validateInput checks that required fields are present.
//
// This is a TRUST BOUNDARY for direct library users who build Input
// manually; the CLI validates earlier at flag parsing. Both paths
// converge here.
func validateInput(input Input) error {
	if input.HTML == "" {
		return ErrEmptyHTML
	}
	if input.PageID == "" && input.ParentID == "" {
		return ErrMissingPageTarget
	}
	return nil
}

// storeUploader adapts the page store to the resolver's uploader
// interface.
type storeUploader struct {
	store pageStore
}

func (u *storeUploader) UploadAttachment(ctx context.Context, pageID, path, comment string) (pipeline.UploadResult, error) {
	att, err := u.store.UploadAttachment(ctx, pageID, path, comment)
	if err != nil {
		return pipeline.UploadResult{}, err
	}
	return pipeline.UploadResult{FileID: att.FileID, Collection: att.Collection}, nil
}

// discardPending removes chart files that never reached resolution.
func discardPending(pending []pipeline.PendingChart) {
	for _, chart := range pending {
		_ = os.Remove(chart.Path)
	}
}

// titleFromFilename derives a page title from the notebook filename:
// extension stripped, underscores to spaces, words capitalized.
func titleFromFilename(filename string) string {
	if filename == "" {
		return "Untitled"
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	words := strings.Fields(strings.ReplaceAll(base, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return "Untitled"
	}
	return strings.Join(words, " ")
}

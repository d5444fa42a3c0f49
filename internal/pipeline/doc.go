// Package pipeline implements the notebook-output conversion pipeline.
//
// This package turns a recovered mount config into publishable content:
//   - Output collection in notebook-cell order with type priority
//   - Embedded-chart scanning and stripping inside HTML outputs
//   - Markdown to HTML conversion via Goldmark
//   - Assembly into body nodes with chart placeholders
//   - Placeholder resolution once chart images are uploaded
//
// Chart rendering and attachment upload are handled by collaborators
// (internal/vega, internal/confluence) behind small interfaces. This
// separation keeps the pipeline focused on document structure while the
// collaborators own browsers and network I/O.
package pipeline

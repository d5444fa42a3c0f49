package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/alnah/go-marimo2confluence/internal/adf"
)

// maxImageWidth is the destination page's content width in pixels.
// Larger charts are capped to it; smaller ones keep their natural size.
// Presentation policy, matched to existing documents.
const maxImageWidth = 760

// UploadResult identifies an uploaded attachment. Either field may be
// empty when the store accepted the request but returned no usable
// identifiers; that chart's placeholder is then dropped rather than
// failing the document.
type UploadResult struct {
	FileID     string
	Collection string
}

// AttachmentUploader uploads a local file as an attachment of a page.
// Transport failures return an error and abort resolution; per-asset
// failures surface as an empty UploadResult instead.
type AttachmentUploader interface {
	UploadAttachment(ctx context.Context, pageID, path, comment string) (UploadResult, error)
}

// ResolvePlaceholders uploads every pending chart and maps the assembled
// nodes to final ADF: content nodes pass through verbatim, placeholders
// become media nodes, and placeholders whose upload yielded no
// identifiers are omitted. No placeholder survives resolution.
//
// Uploads run sequentially in queue order; each temporary file is removed
// after its attempt, success or failure, so at most one raster is pending
// disposal at a time. Removal failures are ignored.
func ResolvePlaceholders(ctx context.Context, nodes []Node, pending []PendingChart, uploader AttachmentUploader, pageID string) ([]adf.Node, error) {
	media := make(map[string]adf.Node, len(pending))

	for _, chart := range pending {
		result, err := uploadAndCleanup(ctx, uploader, pageID, chart)
		if err != nil {
			return nil, err
		}
		if result.FileID == "" || result.Collection == "" {
			continue
		}

		if chart.Width > maxImageWidth {
			media[chart.Key] = adf.MediaSingleWithWidth(result.FileID, result.Collection, maxImageWidth)
		} else {
			media[chart.Key] = adf.MediaSingle(result.FileID, result.Collection)
		}
	}

	final := make([]adf.Node, 0, len(nodes))
	for _, n := range nodes {
		switch v := n.(type) {
		case ContentNode:
			final = append(final, v.ADF)
		case ChartPlaceholder:
			if m, ok := media[v.Key]; ok {
				final = append(final, m)
			}
		}
	}
	return final, nil
}

// uploadAndCleanup attempts one upload and always disposes of the
// temporary file afterwards.
func uploadAndCleanup(ctx context.Context, uploader AttachmentUploader, pageID string, chart PendingChart) (UploadResult, error) {
	defer func() {
		_ = os.Remove(chart.Path)
	}()

	comment := fmt.Sprintf("Chart from cell %s", chart.Key)
	return uploader.UploadAttachment(ctx, pageID, chart.Path, comment)
}

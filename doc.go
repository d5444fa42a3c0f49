// Package marimo2confluence publishes marimo notebook HTML exports as
// Confluence pages.
//
// # Quick Start
//
// Create a converter, convert an export, and close when done:
//
//	conv, err := marimo2confluence.NewConverter(
//	    marimo2confluence.WithConfluence("https://example.atlassian.net", email, apiToken),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, marimo2confluence.Input{
//	    HTML:     string(exportBytes),
//	    ParentID: "123456",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.URL)
//
// # Conversion Pipeline
//
// The conversion process follows these stages:
//
//  1. Mount-config extraction from the export's script block
//  2. Output collection in notebook-cell order with type priority
//  3. Assembly into ADF nodes, rendering charts via headless Chrome
//  4. Attachment upload and chart-placeholder resolution
//  5. Page create/update through the Confluence v2 API
//
// Individual charts or outputs that cannot be converted are dropped
// rather than failing the document; only config extraction and transport
// failures abort a run.
//
// Use Preview to inspect an export's outputs without touching the network:
//
//	info, err := conv.Preview(string(exportBytes))
package marimo2confluence

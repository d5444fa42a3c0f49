package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	marimo2confluence "github.com/alnah/go-marimo2confluence"
)

// ErrReadInput indicates the export file could not be read.
var ErrReadInput = errors.New("failed to read input HTML")

// runConvert reads the export, converts it, and reports the result.
func runConvert(flags *cliFlags, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		return ErrNoInput
	}
	if flags.pageID == "" && flags.parentID == "" {
		return ErrNoPageTarget
	}

	site, err := loadSiteConfig(flags.config)
	if err != nil {
		return err
	}
	if err := site.validateSite(); err != nil {
		return err
	}

	html, err := readInputHTML(args[0])
	if err != nil {
		return err
	}

	conv, err := marimo2confluence.NewConverter(
		marimo2confluence.WithConfluence(site.BaseURL, site.Email, site.APIToken),
		marimo2confluence.WithTimeout(flags.timeout),
		marimo2confluence.WithChartScale(flags.scale),
	)
	if err != nil {
		return err
	}
	defer conv.Close()

	if flags.verbose {
		fmt.Fprintf(stderr, "Converting %s...\n", args[0])
	}

	result, err := conv.Convert(context.Background(), marimo2confluence.Input{
		HTML:     html,
		PageID:   flags.pageID,
		ParentID: flags.parentID,
		Title:    flags.title,
	})
	if err != nil {
		return err
	}

	action := "created"
	if flags.pageID != "" {
		action = "updated"
	}
	fmt.Fprintf(stdout, "Page %q %s\n", result.Title, action)
	fmt.Fprintf(stdout, "  ID: %s\n", result.ID)
	fmt.Fprintf(stdout, "  Version: %d\n", result.Version)
	fmt.Fprintf(stdout, "  URL: %s\n", result.URL)
	return nil
}

// readInputHTML reads the export file.
func readInputHTML(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- input path is user-provided
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	return string(data), nil
}

package main

import (
	"fmt"
	"io"

	marimo2confluence "github.com/alnah/go-marimo2confluence"
)

// runPreview summarizes an export without uploading anything.
func runPreview(flags *cliFlags, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return ErrNoInput
	}

	html, err := readInputHTML(args[0])
	if err != nil {
		return err
	}

	// Preview never talks to the network, so no site config is needed.
	conv, err := marimo2confluence.NewConverter()
	if err != nil {
		return err
	}
	defer conv.Close()

	info, err := conv.Preview(html)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Notebook: %s\n", info.Filename)
	fmt.Fprintf(stdout, "Marimo version: %s\n", info.Version)
	fmt.Fprintf(stdout, "Cells: %d\n", info.CellCount)
	fmt.Fprintf(stdout, "Outputs: %d\n", info.OutputCount)
	fmt.Fprintln(stdout, "Output types:")
	for _, t := range []string{"markdown", "vegalite", "html", "plain"} {
		if n := info.OutputTypes[t]; n > 0 {
			fmt.Fprintf(stdout, "  - %s: %d\n", t, n)
		}
	}
	return nil
}

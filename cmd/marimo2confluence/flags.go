package main

import (
	"errors"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
)

// Sentinel errors for flag parsing.
var (
	ErrNoCommand      = errors.New("no command specified (expected convert, preview, or version)")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoInput        = errors.New("no input HTML file specified")
	ErrNoPageTarget   = errors.New("either --page-id or --parent-id is required")
)

// Subcommands.
const (
	cmdConvert = "convert"
	cmdPreview = "preview"
	cmdVersion = "version"
)

// cliFlags holds parsed command-line flags.
type cliFlags struct {
	command string

	// Common
	config  string
	verbose bool

	// Convert
	pageID   string
	parentID string
	title    string
	scale    float64
	timeout  time.Duration
}

// usageText is printed for -h/--help and usage errors.
const usageText = `Usage: marimo2confluence <command> [flags] <notebook.html>

Commands:
  convert    Convert a marimo HTML export to a Confluence page
  preview    Summarize an export without uploading
  version    Print version

Convert flags:
      --page-id string     Existing page ID to update
      --parent-id string   Parent page ID for a new page
  -t, --title string       Page title (default: extracted from notebook)
      --scale float        Chart raster scale factor (default 2.0)
      --timeout duration   Per-chart rendering timeout (default 30s)

Common flags:
  -c, --config string      Site config file (YAML)
  -v, --verbose            Verbose output to stderr

Site credentials come from the config file or the environment:
  CONFLUENCE_BASE_URL, CONFLUENCE_EMAIL, CONFLUENCE_API_TOKEN
`

// parseFlags parses the command and its flags. Returns the flags and the
// remaining positional arguments (the input file).
func parseFlags(args []string) (*cliFlags, []string, error) {
	if len(args) < 2 {
		return nil, nil, fmt.Errorf("%w\n\n%s", ErrNoCommand, usageText)
	}

	flags := &cliFlags{command: args[1]}

	fs := flag.NewFlagSet(flags.command, flag.ContinueOnError)
	fs.Usage = func() { fmt.Print(usageText) }

	fs.StringVarP(&flags.config, "config", "c", "", "site config file")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")

	if flags.command == cmdConvert {
		fs.StringVar(&flags.pageID, "page-id", "", "existing page ID to update")
		fs.StringVar(&flags.parentID, "parent-id", "", "parent page ID for a new page")
		fs.StringVarP(&flags.title, "title", "t", "", "page title")
		fs.Float64Var(&flags.scale, "scale", 2.0, "chart raster scale factor")
		fs.DurationVar(&flags.timeout, "timeout", 30*time.Second, "per-chart rendering timeout")
	}

	if err := fs.Parse(args[2:]); err != nil {
		return nil, nil, err
	}

	return flags, fs.Args(), nil
}

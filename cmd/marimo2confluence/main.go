package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	flags, args, err := parseFlags(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitUsage)
	}

	// Configure GOMAXPROCS with conditional logging.
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if flags.verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	if err := run(flags, args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// run dispatches to the selected subcommand.
func run(flags *cliFlags, args []string, stdout, stderr io.Writer) error {
	switch flags.command {
	case cmdConvert:
		return runConvert(flags, args, stdout, stderr)
	case cmdPreview:
		return runPreview(flags, args, stdout)
	case cmdVersion:
		fmt.Fprintf(stdout, "marimo2confluence %s\n", Version)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, flags.command)
	}
}

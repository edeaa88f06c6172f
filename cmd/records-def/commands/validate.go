package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/openground/records/pkg/definition"
)

// ValidateOptions configures the validate command.
type ValidateOptions struct {
	Quiet bool
	Files []string
}

// RunValidate runs the validate command.
func RunValidate(args []string, stdout, stderr io.Writer) int {
	opts, err := parseValidateArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	if len(opts.Files) == 0 {
		fmt.Fprintln(stderr, "Error: no files specified")
		printValidateUsage(stderr)
		return exitCommandError
	}

	failed := 0
	for _, path := range opts.Files {
		cmds, tlm, err := validateFile(path)
		if err != nil {
			fmt.Fprintf(stdout, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		if !opts.Quiet {
			fmt.Fprintf(stdout, "OK   %s (%d commands, %d telemetry)\n", path, cmds, tlm)
		}
	}

	if failed > 0 {
		return exitValidation
	}
	return exitSuccess
}

func validateFile(path string) (int, int, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return 0, 0, err
	}
	cmds, tlm, err := doc.Build(definition.Options{})
	if err != nil {
		return 0, 0, err
	}
	return len(cmds), len(tlm), nil
}

func parseValidateArgs(args []string) (ValidateOptions, error) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	opts := ValidateOptions{}

	fs.BoolVar(&opts.Quiet, "q", false, "Only report failures")
	fs.BoolVar(&opts.Quiet, "quiet", false, "Only report failures")

	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.Files = fs.Args()
	return opts, nil
}

func printValidateUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: records-def validate [options] <files...>

Options:
  -q, --quiet   Only report failures

Exit codes:
  0  all files build
  1  command error
  2  at least one file failed`)
}

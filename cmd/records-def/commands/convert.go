package commands

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openground/records/pkg/definition"
)

// ConvertOptions configures the convert command.
type ConvertOptions struct {
	Input  string
	Output string // Empty means stdout

	// Normalize rebuilds the document and exports it with every offset,
	// endianness and overflow spelled out.
	Normalize bool
}

// RunConvert runs the convert command. YAML input becomes CBOR and CBOR
// input becomes YAML.
func RunConvert(args []string, stdout, stderr io.Writer) int {
	opts, err := parseConvertArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	if opts.Input == "" {
		fmt.Fprintln(stderr, "Error: no input file specified")
		printConvertUsage(stderr)
		return exitCommandError
	}

	doc, err := loadDocument(opts.Input)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing input: %v\n", err)
		return exitCommandError
	}

	if opts.Normalize {
		cmds, tlm, err := doc.Build(definition.Options{})
		if err != nil {
			fmt.Fprintf(stderr, "Error building packets: %v\n", err)
			return exitValidation
		}
		if doc, err = definition.FromPackets(strings.ToUpper(doc.Target), cmds, tlm); err != nil {
			fmt.Fprintf(stderr, "Error exporting packets: %v\n", err)
			return exitCommandError
		}
	}

	var out bytes.Buffer
	if isCBOR(opts.Input) {
		err = definition.EncodeYAML(&out, doc)
	} else {
		var data []byte
		data, err = definition.MarshalCBOR(doc)
		out.Write(data)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error encoding output: %v\n", err)
		return exitCommandError
	}

	if opts.Output == "" || opts.Output == "-" {
		stdout.Write(out.Bytes())
		return exitSuccess
	}
	if err := os.WriteFile(opts.Output, out.Bytes(), 0644); err != nil {
		fmt.Fprintf(stderr, "Error writing output: %v\n", err)
		return exitCommandError
	}
	fmt.Fprintf(stdout, "Converted %s -> %s\n", opts.Input, opts.Output)
	return exitSuccess
}

func parseConvertArgs(args []string) (ConvertOptions, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	opts := ConvertOptions{}

	fs.StringVar(&opts.Output, "o", "", "Output file (default: stdout)")
	fs.StringVar(&opts.Output, "output", "", "Output file")
	fs.BoolVar(&opts.Normalize, "normalize", false, "Spell out offsets and byte order")

	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if remaining := fs.Args(); len(remaining) > 0 {
		opts.Input = remaining[0]
	}
	return opts, nil
}

func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: records-def convert [options] <input-file>

Options:
  -o, --output   Output file (default: stdout)
  --normalize    Spell out offsets and byte order

Examples:
  records-def convert inst.yaml -o inst.cbor
  records-def convert --normalize inst.cbor > inst.yaml`)
}

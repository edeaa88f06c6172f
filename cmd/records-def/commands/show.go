package commands

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/openground/records/pkg/definition"
	"github.com/openground/records/pkg/packet"
)

// ShowOptions configures the show command.
type ShowOptions struct {
	Input  string
	Packet string
}

// RunShow runs the show command.
func RunShow(args []string, stdout, stderr io.Writer) int {
	opts, err := parseShowArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	if opts.Input == "" {
		fmt.Fprintln(stderr, "Error: no input file specified")
		printShowUsage(stderr)
		return exitCommandError
	}

	doc, err := loadDocument(opts.Input)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing input: %v\n", err)
		return exitCommandError
	}
	cmds, tlm, err := doc.Build(definition.Options{})
	if err != nil {
		fmt.Fprintf(stderr, "Error building packets: %v\n", err)
		return exitValidation
	}

	shown := 0
	for _, group := range []struct {
		kind    string
		packets []*packet.Packet
	}{{"COMMAND", cmds}, {"TELEMETRY", tlm}} {
		for _, p := range group.packets {
			if opts.Packet != "" && !strings.EqualFold(opts.Packet, p.PacketName()) {
				continue
			}
			showPacket(stdout, group.kind, p)
			shown++
		}
	}

	if shown == 0 && opts.Packet != "" {
		fmt.Fprintf(stderr, "Error: packet %s not found\n", strings.ToUpper(opts.Packet))
		return exitCommandError
	}
	return exitSuccess
}

func showPacket(w io.Writer, kind string, p *packet.Packet) {
	length := fmt.Sprintf("%d bytes", p.DefinedLength())
	if !p.FixedSize() {
		length = fmt.Sprintf("%d+ bytes", p.DefinedLength())
	}
	fmt.Fprintf(w, "%s %s %s (%s)\n", kind, p.TargetName(), p.PacketName(), length)
	if p.Description != "" {
		fmt.Fprintf(w, "  %s\n", p.Description)
	}

	for _, it := range p.SortedItems() {
		size := fmt.Sprintf("%d", it.BitSize())
		if it.IsArray() {
			size = fmt.Sprintf("%dx%d", it.BitSize(), it.ArraySize())
		}
		fmt.Fprintf(w, "  %6d %6s %-8s %s", it.BitOffset(), size, it.DataType(), it.Name())
		if v := it.IDValue(); v != nil {
			fmt.Fprintf(w, " id=%v", v)
		}
		if it.Units != "" {
			fmt.Fprintf(w, " [%s]", it.Units)
		}
		if len(it.States) > 0 {
			names := make([]string, len(it.States))
			for i, s := range it.States {
				names[i] = s.Name
			}
			fmt.Fprintf(w, " {%s}", strings.Join(names, ", "))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

func parseShowArgs(args []string) (ShowOptions, error) {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	opts := ShowOptions{}

	fs.StringVar(&opts.Packet, "packet", "", "Only show the named packet")

	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if remaining := fs.Args(); len(remaining) > 0 {
		opts.Input = remaining[0]
	}
	return opts, nil
}

func printShowUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: records-def show [options] <input-file>

Options:
  --packet   Only show the named packet

Columns: bit offset, bit size, type, name.`)
}

package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/chzyer/readline"

	"github.com/openground/records/pkg/catalog"
	"github.com/openground/records/pkg/packet"
)

// Console is an interactive session over a loaded catalog.
type Console struct {
	cmds *catalog.Commands
	tlm  *catalog.Telemetry
	out  io.Writer
}

// NewConsole creates a console that writes to out.
func NewConsole(cmds *catalog.Commands, tlm *catalog.Telemetry, out io.Writer) *Console {
	return &Console{cmds: cmds, tlm: tlm, out: out}
}

// RunConsole runs the console command.
func RunConsole(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Error: no definition files specified")
		fmt.Fprintln(stderr, "\nUsage: records-def console <files...>")
		return exitCommandError
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "records> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create readline: %v\n", err)
		return exitCommandError
	}
	defer rl.Close()

	cmds, tlm, err := loadCatalog(args, rl.Stderr())
	if err != nil {
		fmt.Fprintf(stderr, "Error loading definitions: %v\n", err)
		return exitCommandError
	}

	c := NewConsole(cmds, tlm, rl.Stdout())
	c.printHelp()
	for {
		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			return exitSuccess
		}
		if c.Execute(line) {
			return exitSuccess
		}
	}
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("targets"),
	readline.PcItem("show"),
	readline.PcItem("cmd"),
	readline.PcItem("decode"),
	readline.PcItem("value"),
	readline.PcItem("limits"),
	readline.PcItem("exit"),
)

// Execute runs one input line and reports whether the session should end.
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "targets", "t":
		c.cmdTargets()
	case "show", "s":
		err = c.cmdShow(args)
	case "cmd", "c":
		err = c.cmdBuild(args)
	case "decode", "d":
		err = c.cmdDecode(args)
	case "value", "v":
		err = c.cmdValue(args)
	case "limits", "l":
		c.cmdLimits()
	case "exit", "quit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help')\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `Commands:
  targets                          List targets and their packet counts
  show TARGET PACKET               Show a packet layout
  cmd TARGET PACKET [NAME=VALUE]   Build a command
  decode HEX                       Identify and store a telemetry buffer
  value TARGET PACKET ITEM [TYPE]  Read a current telemetry value
  limits                           List out-of-limits telemetry items
  exit                             Leave the console`)
}

func (c *Console) cmdTargets() {
	targets := c.cmds.TargetNames()
	for _, t := range c.tlm.TargetNames() {
		if !slices.Contains(targets, t) {
			targets = append(targets, t)
		}
	}
	slices.Sort(targets)
	for _, t := range targets {
		nc, nt := 0, 0
		if ps, err := c.cmds.Packets(t); err == nil {
			nc = len(ps)
		}
		if ps, err := c.tlm.Packets(t); err == nil {
			nt = len(ps)
		}
		fmt.Fprintf(c.out, "%s: %d commands, %d telemetry\n", t, nc, nt)
	}
}

func (c *Console) cmdShow(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: show TARGET PACKET")
	}
	if p, err := c.tlm.Packet(args[0], args[1]); err == nil {
		showPacket(c.out, "TELEMETRY", p)
		return nil
	}
	p, err := c.cmds.Packet(args[0], args[1])
	if err != nil {
		return err
	}
	showPacket(c.out, "COMMAND", p)
	return nil
}

func (c *Console) cmdBuild(args []string) error {
	params, names, err := parseParams(args)
	if err != nil {
		return err
	}
	if len(names) != 2 {
		return fmt.Errorf("usage: cmd TARGET PACKET [NAME=VALUE...]")
	}
	return buildCommand(c.out, c.cmds, names[0], names[1], params, true, false)
}

func (c *Console) cmdDecode(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: decode HEX")
	}
	buf, err := parseHex(strings.Join(args, ""))
	if err != nil {
		return err
	}
	return decodeBuffer(c.out, c.tlm, buf, nil, packet.WithUnits, true)
}

func (c *Console) cmdValue(args []string) error {
	if len(args) != 3 && len(args) != 4 {
		return fmt.Errorf("usage: value TARGET PACKET ITEM [RAW|CONVERTED|FORMATTED|WITH_UNITS]")
	}
	vt := packet.WithUnits
	if len(args) == 4 {
		var err error
		if vt, err = packet.ParseValueType(args[3]); err != nil {
			return err
		}
	}
	v, err := c.tlm.Value(args[0], args[1], args[2], vt)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%v\n", v)
	return nil
}

func (c *Console) cmdLimits() {
	count := 0
	for _, t := range c.tlm.TargetNames() {
		ps, err := c.tlm.Packets(t)
		if err != nil {
			continue
		}
		names := make([]string, 0, len(ps))
		for name := range ps {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			for _, o := range ps[name].OutOfLimits() {
				fmt.Fprintf(c.out, "%s %s\n", o.Ref, o.State)
				count++
			}
		}
	}
	if count == 0 {
		fmt.Fprintln(c.out, "All items within limits")
	}
}

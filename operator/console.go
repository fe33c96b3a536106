package operator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"phantomlink/preset"
	"phantomlink/wire"
)

// ErrQuit is returned by Exec after a quit command was sent.
var ErrQuit = errors.New("operator: quit")

const consoleHelp = `commands:
  connect <port>           open the serial port on the command side
  disconnect               close it
  move <l|r|p> <ext> <rot> drive one cylinder (0-255)
  manual                   stop the running preset
  preset <1-8>             start a preset
  status                   show cylinder positions and recent log
  quit                     shut everything down`

// Console is a line-oriented front end for an Operator.
type Console struct {
	op  *Operator
	out io.Writer
}

func NewConsole(op *Operator, out io.Writer) *Console {
	return &Console{op: op, out: out}
}

// Run executes lines from in until quit, EOF or ctx is done. EOF is treated
// like quit so that a closed stdin still shuts the system down.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, `type "help" for commands`)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return c.op.Shutdown()
			}
			err := c.Exec(line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
	}
}

// Exec runs a single command line.
func (c *Console) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	case "connect":
		if len(args) != 1 {
			return errors.New("usage: connect <port>")
		}
		return c.op.Connect(args[0])
	case "disconnect":
		return c.op.Disconnect()
	case "move":
		return c.move(args)
	case "manual":
		return c.op.Manual()
	case "preset":
		if len(args) != 1 {
			return errors.New("usage: preset <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("preset: %w", err)
		}
		if !preset.Known(n) {
			return fmt.Errorf("preset: no preset %d", n)
		}
		return c.op.Preset(n)
	case "status":
		c.status()
		return nil
	case "quit", "exit":
		if err := c.op.Shutdown(); err != nil {
			return err
		}
		return ErrQuit
	}
	return fmt.Errorf("unknown command %q", fields[0])
}

func (c *Console) move(args []string) error {
	if len(args) != 3 {
		return errors.New("usage: move <l|r|p> <ext> <rot>")
	}
	cyl, err := wire.ParseCylinder(args[0])
	if err != nil {
		return err
	}
	ext, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return fmt.Errorf("extension: %w", err)
	}
	rot, err := strconv.ParseUint(args[2], 10, 8)
	if err != nil {
		return fmt.Errorf("rotation: %w", err)
	}
	return c.op.Move(cyl, uint8(ext), uint8(rot))
}

func (c *Console) status() {
	for _, cyl := range []wire.Cylinder{wire.Left, wire.Right, wire.Platform} {
		p := c.op.Pose(cyl)
		fmt.Fprintf(c.out, "%-8s ext %3d (%+6.1f mm)  rot %3d (%+6.1f deg)\n",
			cyl, p.Extension, p.ExtensionMM(), p.Rotation, p.RotationDeg())
	}
	history := c.op.History()
	if len(history) > 5 {
		history = history[:5]
	}
	for _, m := range history {
		fmt.Fprintf(c.out, "  [%s] %s\n", m.Source, m.Text)
	}
}

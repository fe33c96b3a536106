package main

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"phantomlink/config"
	"phantomlink/mediator"
	"phantomlink/motion"
	"phantomlink/serialcomm"
	"phantomlink/wire"
)

var (
	jogStep     uint8
	jogRepeat   int
	jogInterval time.Duration
)

var jogCmd = &cobra.Command{
	Use:   "jog <l|r|p> <ext> <rot>",
	Short: "Send a single cylinder move straight to the controller",
	Long: `jog opens the serial port itself, bypassing the command side, and writes
one motion frame (optionally repeated). Useful for bench-testing a controller.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		move, err := parseMove(args)
		if err != nil {
			return err
		}
		return jog(cfg, opener, move, cmd.OutOrStdout())
	},
}

func parseMove(args []string) (wire.CylinderMotion, error) {
	cyl, err := wire.ParseCylinder(args[0])
	if err != nil {
		return wire.CylinderMotion{}, err
	}
	ext, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return wire.CylinderMotion{}, fmt.Errorf("extension: %w", err)
	}
	rot, err := strconv.ParseUint(args[2], 10, 8)
	if err != nil {
		return wire.CylinderMotion{}, fmt.Errorf("rotation: %w", err)
	}
	return wire.CylinderMotion{Cylinder: cyl, Extension: uint8(ext), Rotation: uint8(rot)}, nil
}

// jogFrame encodes move with the given step size.
func jogFrame(move wire.CylinderMotion, step uint8) ([]byte, error) {
	cmds, err := mediator.Translate(move)
	if err != nil {
		return nil, err
	}
	for i := range cmds {
		cmds[i].StepSize = step
	}
	return motion.EncodeFrame(cmds), nil
}

func jog(c *config.Config, open serialcomm.Opener, move wire.CylinderMotion, out io.Writer) error {
	if jogStep > motion.MaxStepSize {
		return fmt.Errorf("step must be 0-%d, got %d", motion.MaxStepSize, jogStep)
	}
	frame, err := jogFrame(move, jogStep)
	if err != nil {
		return err
	}
	port, err := openPort(c, open)
	if err != nil {
		return err
	}
	defer port.Close()

	sender := serialcomm.NewSender(port)
	if _, err := sender.Send([]byte{motion.SyncRequest}); err != nil {
		return fmt.Errorf("send sync: %w", err)
	}

	for i := 1; i <= jogRepeat; i++ {
		sum, err := sender.Send(frame)
		if err != nil {
			return fmt.Errorf("send frame %d/%d: %w", i, jogRepeat, err)
		}
		log.Printf("[jog] frame %d/%d: %x crc %04x", i, jogRepeat, frame, sum)
		if i < jogRepeat {
			time.Sleep(jogInterval)
		}
	}
	fmt.Fprintf(out, "%s -> ext %d rot %d (%d frame(s), %x)\n",
		move.Cylinder, move.Extension, move.Rotation, jogRepeat, frame)
	return nil
}

func init() {
	jogCmd.Flags().Uint8Var(&jogStep, "step", 5, "step size 0-15")
	jogCmd.Flags().IntVar(&jogRepeat, "repeat", 1, "number of times to send the frame")
	jogCmd.Flags().DurationVar(&jogInterval, "interval", motion.DefaultFlushInterval, "delay between repeated frames")
	rootCmd.AddCommand(jogCmd)
}

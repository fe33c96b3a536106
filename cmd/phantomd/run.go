package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"phantomlink/config"
	"phantomlink/link"
	"phantomlink/serialcomm"
	"phantomlink/wire"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the command side and the operator console in one process",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runLocal(ctx, cfg, opener, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runLocal connects both endpoints through in-process pipes and returns
// once both receive loops have ended.
func runLocal(ctx context.Context, c *config.Config, open serialcomm.Opener, in io.Reader, out io.Writer) error {
	codec := wire.NewCodec(wire.DefaultRegistry())
	opCommands, medCommands := link.Pipe(0)
	medNotify, opNotify := link.Pipe(0)

	loopCtx, cancelLoops := context.WithCancel(ctx)
	defer cancelLoops()
	cs := startCommandSide(loopCtx, c, open, medCommands, medNotify, codec)
	side := startOperatorSide(loopCtx, c, opCommands, opNotify, codec, out)
	autoConnect(c, side.op)

	console(ctx, side, in, out, cs.disp, side.disp)

	// Once either loop has stopped the other has no peer left.
	select {
	case <-cs.disp.Done():
	case <-side.disp.Done():
	}
	cancelLoops()
	medErr := cs.Wait()
	opErr := side.disp.Wait()
	opCommands.Close()
	medNotify.Close()
	return errors.Join(medErr, opErr)
}

func init() {
	rootCmd.AddCommand(runCmd)
}

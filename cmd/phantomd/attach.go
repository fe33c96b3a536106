package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"phantomlink/config"
	"phantomlink/link"
	"phantomlink/wire"
)

var attachURL string

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Open the operator console against a running phantomd serve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if attachURL != "" {
			cfg.Link.URL = attachURL
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		conn, err := link.Dial(ctx, cfg.Link.URL)
		if err != nil {
			return err
		}
		defer conn.Close()
		return attach(ctx, cfg, conn, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func attach(ctx context.Context, c *config.Config, conn link.Conn, in io.Reader, out io.Writer) error {
	side := startOperatorSide(ctx, c, conn, conn, wire.NewCodec(wire.DefaultRegistry()), out)
	autoConnect(c, side.op)
	console(ctx, side, in, out, side.disp)
	return side.disp.Wait()
}

func init() {
	attachCmd.Flags().StringVar(&attachURL, "url", "", "websocket URL of phantomd serve (default from config)")
	rootCmd.AddCommand(attachCmd)
}

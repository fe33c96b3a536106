package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"phantomlink/config"
	"phantomlink/link"
	"phantomlink/serialcomm"
	"phantomlink/wire"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the command side and wait for an operator to attach over websocket",
	Long: `serve owns the serial port and the preset generator. A single operator
session is served; it ends when the operator sends quit or disconnects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenAddr != "" {
			cfg.Link.Listen = listenAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		l, err := link.Listen(cfg.Link.Listen)
		if err != nil {
			return err
		}
		defer l.Close()
		log.Printf("[phantomd] waiting for operator on ws://%s%s", l.Addr(), link.CommandsPath)
		return serve(ctx, cfg, opener, l)
	},
}

// serve runs one operator session accepted from l.
func serve(ctx context.Context, c *config.Config, open serialcomm.Opener, l *link.Listener) error {
	conn, err := l.Accept(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer conn.Close()
	log.Printf("[phantomd] operator attached")

	cs := startCommandSide(ctx, c, open, conn, conn, wire.NewCodec(wire.DefaultRegistry()))
	return cs.Wait()
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from config, 127.0.0.1:7878)")
	rootCmd.AddCommand(serveCmd)
}

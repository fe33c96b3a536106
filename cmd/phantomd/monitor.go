package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"phantomlink/config"
	"phantomlink/motion"
	"phantomlink/serialcomm"
)

var (
	monitorRaw    bool
	monitorNoSync bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print the controller's telemetry without driving it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return monitor(ctx, cfg, opener, cmd.OutOrStdout())
	},
}

// monitor opens the configured port and prints deframed telemetry lines
// until ctx is done.
func monitor(ctx context.Context, c *config.Config, open serialcomm.Opener, out io.Writer) error {
	port, err := openPort(c, open)
	if err != nil {
		return err
	}
	log.Printf("[monitor] listening on %s at %d baud", c.Serial.Port, c.Serial.BaudRate)

	var (
		mu       sync.Mutex
		deframer = motion.NewDeframer()
	)
	rx := serialcomm.NewReceiver(port, func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		if monitorRaw {
			fmt.Fprintf(out, "rx %d bytes: %q (hex: %x)\n", len(data), data, data)
		}
		for _, line := range deframer.Feed(data) {
			fmt.Fprintln(out, line)
		}
	})
	readErr := make(chan error, 1)
	rx.OnError(func(err error) { readErr <- err })
	rx.Start()

	if !monitorNoSync {
		if _, err := serialcomm.NewSender(port).Send([]byte{motion.SyncRequest}); err != nil {
			log.Printf("[monitor] send sync: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		err = nil
	case err = <-readErr:
	}
	rx.Stop()
	port.Close()
	rx.Wait()
	return err
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorRaw, "raw", false, "also print every received chunk")
	monitorCmd.Flags().BoolVar(&monitorNoSync, "no-sync", false, "do not send the sync request on open")
	rootCmd.AddCommand(monitorCmd)
}

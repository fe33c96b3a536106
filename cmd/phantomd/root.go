package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"phantomlink/config"
	"phantomlink/serialcomm"
)

var (
	// Global flags
	cfgFile string
	port    string
	driver  string

	// Shared state set during PersistentPreRun
	cfg    *config.Config
	opener serialcomm.Opener
)

// rootCmd is the base command for phantomd.
var rootCmd = &cobra.Command{
	Use:   "phantomd",
	Short: "Motion phantom controller: drive the cylinders, play presets, watch telemetry",
	Long: `phantomd talks to the motion phantom's controller over a serial port.
It runs the command side (motion engine and preset generator) and the
operator console either in one process (run) or split across a websocket
link (serve / attach).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags
		if port != "" {
			cfg.Serial.Port = port
		}
		if driver != "" {
			cfg.Serial.Driver = driver
		}

		opener, err = serialcomm.OpenerFor(cfg.Serial.Driver)
		return err
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.phantomlink/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&port, "port", "p", "", "serial port of the motion controller")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "serial driver: tarm or bugst")
}

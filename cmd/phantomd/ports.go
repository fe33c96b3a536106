package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"phantomlink/serialcomm"
)

var portsYAML bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List the serial ports of this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serialcomm.ListPorts()
		if err != nil {
			return err
		}
		if portsYAML {
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(ports)
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	portsCmd.Flags().BoolVar(&portsYAML, "yaml", false, "print ports as YAML")
	rootCmd.AddCommand(portsCmd)
}

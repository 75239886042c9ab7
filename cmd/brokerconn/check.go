package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/runtime/connections"
	"github.com/timzifer/brokerconn/telemetry"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCheck(cmd.OutOrStdout(), cfgPath)
	},
}

// runCheck builds every transport without opening a connection.
func runCheck(out io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	manager, err := connections.NewManager(cfg.Connections, transportBuilders(), zerolog.Nop(), telemetry.Noop())
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	defer manager.Close()
	for _, connCfg := range cfg.Connections {
		fmt.Fprintf(out, "Connection %q (%s)\n", connCfg.Name, connCfg.Driver)
	}
	return nil
}

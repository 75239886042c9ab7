package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/runtime/connections"
	"github.com/timzifer/brokerconn/telemetry"
)

var probeTimeout time.Duration

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Open every configured connection and a channel on it, then tear down",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		manager, err := connections.NewManager(cfg.Connections, transportBuilders(), zerolog.Nop(), telemetry.Noop())
		if err != nil {
			return err
		}
		defer manager.Close()
		return runProbe(cmd.Context(), cmd.OutOrStdout(), manager, probeTimeout)
	},
}

func init() {
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 10*time.Second, "Timeout for opening each connection")
}

func runProbe(ctx context.Context, out io.Writer, manager *connections.Manager, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	failed := 0
	for _, name := range manager.Names() {
		if err := probeConnection(ctx, manager, name, timeout); err != nil {
			failed++
			fmt.Fprintf(out, "%s: failed: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d connection(s) failed", failed)
	}
	return nil
}

func probeConnection(ctx context.Context, manager *connections.Manager, name string, timeout time.Duration) error {
	factory, err := manager.Connection(name)
	if err != nil {
		return err
	}
	defer factory.Destroy()

	openCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := factory.CreateConnection(openCtx)
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.CreateChannel(false)
	if err != nil {
		return err
	}
	return ch.Close()
}

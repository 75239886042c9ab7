package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/timzifer/brokerconn/config"
	"github.com/timzifer/brokerconn/connection"
	amqpdriver "github.com/timzifer/brokerconn/drivers/amqp"
	mqttdriver "github.com/timzifer/brokerconn/drivers/mqtt"
	"github.com/timzifer/brokerconn/runtime/connections"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "brokerconn",
	Short:         "brokerconn manages shared message broker connections",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.AddCommand(checkCmd, probeCmd, runCmd)
}

func transportBuilders() map[string]connections.TransportBuilder {
	return map[string]connections.TransportBuilder{
		config.DriverAMQP: amqpdriver.NewTransportBuilder(),
		config.DriverMQTT: mqttdriver.NewTransportBuilder(),
	}
}

// lifecycleLogger reports every connection opened or closed by a factory.
func lifecycleLogger(logger zerolog.Logger) connection.Listener {
	return &connection.ListenerFuncs{
		Create: func(conn connection.Connection) {
			logger.Info().Str("connection", conn.ID()).Str("delegate", conn.Delegate().String()).Msg("connection opened")
		},
		Close: func(conn connection.Connection) {
			logger.Info().Str("connection", conn.ID()).Msg("connection closed")
		},
	}
}

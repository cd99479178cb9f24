package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/straddle/alpaca"
	"github.com/rustyeddy/straddle/broker"
	"github.com/rustyeddy/straddle/config"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// RootConfig holds the global flags.
type RootConfig struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(alpacaBroker)
}

func newRootCmd(newBroker func(*config.Config) (broker.Broker, error)) *cobra.Command {
	a := &app{newBroker: newBroker}

	cmd := &cobra.Command{
		Use:           "trader",
		Short:         "Trader: straddle order execution and position exits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&a.root.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&a.root.LogLevel, "log-level", "", "Log level: debug|info|warn|error (default from config)")
	cmd.PersistentFlags().StringVar(&a.root.LogFormat, "log-format", "", "Log format: text|json (default from config)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup(cmd)
	}

	cmd.AddCommand(
		newExecuteCmd(a),
		newExitsCmd(a),
		newRunCmd(a),
		newJournalCmd(a),
		newConfigCmd(a),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trader (%s)\n", Version)
		},
	})

	return cmd
}

func alpacaBroker(cfg *config.Config) (broker.Broker, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	return alpaca.NewClient(cfg.Broker.BaseURL, cfg.Broker.KeyID, cfg.Broker.SecretKey, cfg.BrokerTimeout()), nil
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

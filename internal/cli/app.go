package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/rustyeddy/straddle/config"
	"github.com/rustyeddy/straddle/internal/id"
	"github.com/rustyeddy/straddle/internal/logger"
	"github.com/rustyeddy/straddle/metrics"
	"github.com/spf13/cobra"
)

// app is the state shared by every command of one invocation.
type app struct {
	root RootConfig

	cfg     *config.Config
	log     *slog.Logger
	runID   string
	metrics *metrics.Metrics

	newBroker func(*config.Config) (broker.Broker, error)
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.root.ConfigPath)
	if err != nil {
		return err
	}
	if a.root.LogLevel != "" {
		cfg.Logging.Level = a.root.LogLevel
	}
	if a.root.LogFormat != "" {
		cfg.Logging.Format = a.root.LogFormat
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.runID = id.New()
	a.log = logger.WithRun(logger.New(cmd.ErrOrStderr(), level, cfg.Logging.Format), a.runID)
	a.metrics = metrics.New()
	return nil
}

// finish records the run and pushes metrics. A failed push is logged,
// never returned.
func (a *app) finish(ctx context.Context, command string, runErr error) error {
	a.metrics.MarkRun(command, time.Now())

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := a.metrics.Push(pushCtx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.log.Warn("metrics push failed", "err", err)
	}

	if runErr != nil {
		return fmt.Errorf("%s: %w", command, runErr)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pecuschain/farmsync/internal/agent"
	"github.com/pecuschain/farmsync/internal/config"
)

// newRunCmd builds the daemon command: sync cycles at the configured
// interval until stopped.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync agent until stopped",
		Long: "Runs sync cycles at the configured interval. Each cycle fetches the\n" +
			"cloud's watermarks, extracts new rows from the DelPro database, and\n" +
			"uploads them. Stop with SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context())
		},
	}
}

func runDaemon(parent context.Context) error {
	logger := buildLogger()
	client := newCloudClient(logger)

	// Resolve identity once, before anything else: a daemon without a
	// farm ID has nothing to do.
	resolver := agent.NewIdentityResolver(client, configPath(), logger)

	farmID, err := resolver.Resolve(parent, resolvedCfg)
	if err != nil {
		return err
	}

	cleanup, err := writePIDFile(config.DefaultPIDPath())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := shutdownContext(parent, logger)

	// Config is re-read every cycle; the identity resolved at startup
	// is pinned for the life of the process.
	loadCycleConfig := func() (*config.Config, error) {
		cfg, err := config.Resolve(config.ReadEnvOverrides(), cliOverrides())
		if err != nil {
			return nil, err
		}

		cfg.FarmID = farmID

		return cfg, nil
	}

	syncer := agent.NewSyncer(client, agent.OpenExtractor, logger)
	runner := agent.NewRunner(syncer, loadCycleConfig, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runner.Run(gctx)
	})

	if resolvedCfg.WatchDatabase && resolvedCfg.DatabaseName != "" {
		watcher := agent.NewWatcher(resolvedCfg.DatabaseName, runner, logger)

		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				// Watching is best-effort; the interval still delivers.
				logger.Warn("database watcher disabled", slog.String("error", err.Error()))
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("sync agent: %w", err)
	}

	return nil
}

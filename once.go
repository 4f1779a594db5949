package main

import (
	"github.com/spf13/cobra"

	"github.com/pecuschain/farmsync/internal/agent"
)

// newOnceCmd builds the single-cycle command, useful for cron-driven
// setups and for verifying an installation end to end.
func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single sync cycle and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			client := newCloudClient(logger)

			resolver := agent.NewIdentityResolver(client, configPath(), logger)

			farmID, err := resolver.Resolve(cmd.Context(), resolvedCfg)
			if err != nil {
				return err
			}

			cfg := *resolvedCfg
			cfg.FarmID = farmID

			syncer := agent.NewSyncer(client, agent.OpenExtractor, logger)

			return syncer.RunCycle(cmd.Context(), &cfg)
		},
	}
}

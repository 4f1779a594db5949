package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pecuschain/farmsync/internal/agent"
)

// newRegisterCmd builds the explicit registration command for headless
// installs, where the daemon cannot prompt.
func newRegisterCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this farm with the cloud",
		Long: "Creates a farm identity on the cloud side and stores the assigned\n" +
			"farm ID in the config file. Needed once per installation.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if resolvedCfg.FarmID != "" {
				return fmt.Errorf("already registered as farm %s (use --farm-id to override at runtime)", resolvedCfg.FarmID)
			}

			if name == "" {
				return fmt.Errorf("--name is required")
			}

			logger := buildLogger()
			client := newCloudClient(logger)
			resolver := agent.NewIdentityResolver(client, configPath(), logger)

			reg, err := resolver.Register(cmd.Context(), name)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered %q with farm ID %s\n", reg.Name, reg.FarmID)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "farm name to register")

	return cmd
}

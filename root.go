// Command farmsync synchronizes a local DelPro herd management
// database to the Pecus Chain cloud. It runs as an unattended daemon
// on the barn PC, extracting new rows each cycle and uploading them
// past the cloud's per-stream watermarks.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pecuschain/farmsync/internal/cloud"
	"github.com/pecuschain/farmsync/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagFarmID     string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by
// PersistentPreRunE, available to all subcommands.
var resolvedCfg *config.Config

// httpClientTimeout bounds each individual request attempt so a dead
// uplink fails into the retry loop instead of hanging a cycle.
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with
// all subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "farmsync",
		Short:   "DelPro to Pecus Chain sync agent",
		Long:    "Synchronizes a local DelPro herd management database to the Pecus Chain cloud.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagFarmID, "farm-id", "", "farm identity override")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newOnceCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override
// chain (defaults -> file -> environment -> CLI) into resolvedCfg.
func loadConfig() error {
	resolved, err := config.Resolve(config.ReadEnvOverrides(), cliOverrides())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// cliOverrides collects the persistent flag values.
func cliOverrides() config.CLIOverrides {
	return config.CLIOverrides{
		ConfigPath: flagConfigPath,
		FarmID:     flagFarmID,
	}
}

// configPath returns the effective config file path for persistence.
func configPath() string {
	return config.ResolvePath(config.ReadEnvOverrides(), cliOverrides())
}

// newCloudClient builds the API client against the resolved base URL.
func newCloudClient(logger *slog.Logger) *cloud.Client {
	return cloud.NewClient(resolvedCfg.CloudURL, defaultHTTPClient(), logger)
}

// buildLogger creates an slog.Logger configured by the resolved config
// and CLI flags. Config-file log level provides the baseline;
// --verbose and --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

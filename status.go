package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pecuschain/farmsync/internal/cloud"
	"github.com/pecuschain/farmsync/internal/config"
)

// statusReport is the machine-readable form of the status command.
type statusReport struct {
	FarmID        string            `json:"farm_id"`
	ConfigPath    string            `json:"config_path"`
	Database      string            `json:"database"`
	DatabaseFound bool              `json:"database_found"`
	DaemonRunning bool              `json:"daemon_running"`
	DaemonPID     int               `json:"daemon_pid,omitempty"`
	Watermarks    *cloud.Watermarks `json:"watermarks,omitempty"`
	CloudError    string            `json:"cloud_error,omitempty"`
}

// newStatusCmd builds the status command: local setup at a glance plus
// the cloud's view of this farm's watermarks.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show agent, database, and cloud sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := buildStatusReport(cmd)

			if flagJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(report)
			}

			printStatus(cmd.OutOrStdout(), report)

			return nil
		},
	}
}

func buildStatusReport(cmd *cobra.Command) *statusReport {
	report := &statusReport{
		FarmID:     resolvedCfg.FarmID,
		ConfigPath: configPath(),
		Database:   resolvedCfg.DatabaseName,
	}

	if resolvedCfg.DatabaseName != "" {
		_, err := os.Stat(resolvedCfg.DatabaseName)
		report.DatabaseFound = err == nil
	}

	if pid, err := readPIDFile(config.DefaultPIDPath()); err == nil && processAlive(pid) {
		report.DaemonRunning = true
		report.DaemonPID = pid
	}

	if resolvedCfg.FarmID != "" {
		client := newCloudClient(buildLogger())

		wm, err := client.SyncStatus(cmd.Context(), resolvedCfg.FarmID)
		if err != nil {
			report.CloudError = err.Error()
		} else {
			report.Watermarks = wm
		}
	}

	return report
}

func printStatus(w io.Writer, report *statusReport) {
	if report.FarmID == "" {
		fmt.Fprintln(w, "Farm:      not registered (run 'farmsync register')")
	} else {
		fmt.Fprintf(w, "Farm:      %s\n", report.FarmID)
	}

	fmt.Fprintf(w, "Config:    %s\n", report.ConfigPath)

	switch {
	case report.Database == "":
		fmt.Fprintln(w, "Database:  not configured")
	case report.DatabaseFound:
		fmt.Fprintf(w, "Database:  %s\n", report.Database)
	default:
		fmt.Fprintf(w, "Database:  %s (missing)\n", report.Database)
	}

	if report.DaemonRunning {
		fmt.Fprintf(w, "Agent:     running (PID %d)\n", report.DaemonPID)
	} else {
		fmt.Fprintln(w, "Agent:     not running")
	}

	switch {
	case report.Watermarks != nil:
		fmt.Fprintf(w, "Cloud:     sessions %d, animals %d, lactations %d, diversions %d\n",
			report.Watermarks.LastSessionOID,
			report.Watermarks.LastAnimalOID,
			report.Watermarks.LastLactationOID,
			report.Watermarks.LastDiversionOID,
		)
	case report.CloudError != "":
		fmt.Fprintf(w, "Cloud:     unreachable (%s)\n", report.CloudError)
	}
}

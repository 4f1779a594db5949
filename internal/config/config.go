// Package config implements TOML configuration loading, validation, and
// persistence for farmsync. It supports a three-layer override chain
// (defaults -> config file -> environment/CLI) and a single write path:
// the registration flow persisting the farm identity assigned by the
// cloud side.
package config

// Config is the configuration structure parsed from the TOML file. The
// file is deliberately small and flat: it is written once by the
// registration flow and afterwards only edited by operators. It is
// re-read at the start of every sync cycle so interval and database
// changes take effect without restarting the agent.
type Config struct {
	// FarmID is the tenant identity assigned by the cloud at
	// registration. Empty means the agent is not yet registered.
	FarmID string `toml:"farm_id"`

	// DatabaseName is the path to the local DelPro database file.
	DatabaseName string `toml:"database_name"`

	// PollingIntervalSeconds is the wall-clock spacing between sync
	// cycles.
	PollingIntervalSeconds int `toml:"polling_interval_seconds"`

	// CloudURL is the base URL of the cloud API, without a path
	// (e.g. https://api.pecuschain.com). The client owns the
	// endpoint paths.
	CloudURL string `toml:"cloud_url"`

	// BatchSize caps the number of rows extracted per stream per cycle.
	BatchSize int `toml:"batch_size"`

	// LogLevel is the baseline slog level: debug, info, warn, error.
	// CLI flags override it.
	LogLevel string `toml:"log_level"`

	// WatchDatabase enables the fsnotify watcher that triggers an early
	// cycle when the milking system writes to the database file.
	WatchDatabase bool `toml:"watch_database"`

	// InitialLookbackDays bounds the first-ever extraction of
	// date-bearing streams: only rows from the last N days are
	// selected when the cloud watermark is zero.
	InitialLookbackDays int `toml:"initial_lookback_days"`

	// FallbackStartDate (YYYY-MM-DD) is used instead of the rolling
	// lookback when the lookback window contains no rows at all, so a
	// long-idle installation still drains its backlog.
	FallbackStartDate string `toml:"fallback_start_date"`
}

// CLIOverrides holds values from CLI flags that override config file
// and environment settings. Empty string means "not specified".
type CLIOverrides struct {
	ConfigPath string // --config flag
	FarmID     string // --farm-id flag
}

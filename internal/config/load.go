package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// fallbackDateLayout is the expected format of fallback_start_date.
const fallbackDateLayout = "2006-01-02"

// Load reads and parses a TOML config file, validates it, and returns
// the resulting Config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise
// returns a Config populated with all default values. This supports
// the pre-registration first run: the agent can register and write its
// first config file without one existing.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment -> CLI flags. CLI flags always
// win, matching user expectations for one-off overrides.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	path := ResolvePath(env, cli)

	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if env.CloudURL != "" {
		cfg.CloudURL = env.CloudURL
	}

	if env.FarmID != "" {
		cfg.FarmID = env.FarmID
	}

	if cli.FarmID != "" {
		cfg.FarmID = cli.FarmID
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// ResolvePath returns the effective config file path: CLI > env >
// platform default.
func ResolvePath(env EnvOverrides, cli CLIOverrides) string {
	path := DefaultConfigPath()
	if env.ConfigPath != "" {
		path = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		path = cli.ConfigPath
	}

	return path
}

// Validate checks a Config for values the agent cannot run with.
// FarmID and DatabaseName may be empty here — identity resolution and
// the per-cycle database open report those separately, with better
// context than a load-time error could give.
func Validate(cfg *Config) error {
	if cfg.PollingIntervalSeconds <= 0 {
		return fmt.Errorf("polling_interval_seconds must be positive, got %d", cfg.PollingIntervalSeconds)
	}

	if cfg.BatchSize <= 0 || cfg.BatchSize > maxBatchSize {
		return fmt.Errorf("batch_size must be in 1..%d, got %d", maxBatchSize, cfg.BatchSize)
	}

	if cfg.CloudURL == "" {
		return errors.New("cloud_url must not be empty")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", cfg.LogLevel)
	}

	if cfg.InitialLookbackDays <= 0 {
		return fmt.Errorf("initial_lookback_days must be positive, got %d", cfg.InitialLookbackDays)
	}

	if _, err := time.Parse(fallbackDateLayout, cfg.FallbackStartDate); err != nil {
		return fmt.Errorf("fallback_start_date must be YYYY-MM-DD: %w", err)
	}

	return nil
}

// Interval returns the polling interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.PollingIntervalSeconds) * time.Second
}

// Lookback returns the initial lookback window as a duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.InitialLookbackDays) * 24 * time.Hour
}

// FallbackStart returns the parsed fallback start date. Validate
// guarantees the parse succeeds for any resolved config.
func (c *Config) FallbackStart() time.Time {
	t, _ := time.Parse(fallbackDateLayout, c.FallbackStartDate)
	return t
}

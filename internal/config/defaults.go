package config

// Default values for configuration options. These are the "layer 0" of
// the override chain and are chosen so a fresh installation works with
// nothing but a farm identity.
const (
	defaultPollingIntervalSeconds = 1800
	defaultCloudURL               = "https://api.pecuschain.com"
	defaultBatchSize              = 1000
	defaultLogLevel               = "info"
	defaultInitialLookbackDays    = 30
	defaultFallbackStartDate      = "2020-01-01"

	// maxBatchSize bounds operator configuration so a single upload
	// payload stays well under cloud request limits.
	maxBatchSize = 5000
)

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding, so unset fields retain
// their defaults, and the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		PollingIntervalSeconds: defaultPollingIntervalSeconds,
		CloudURL:               defaultCloudURL,
		BatchSize:              defaultBatchSize,
		LogLevel:               defaultLogLevel,
		InitialLookbackDays:    defaultInitialLookbackDays,
		FallbackStartDate:      defaultFallbackStartDate,
	}
}

package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "FARMSYNC_CONFIG"
	EnvCloudURL = "FARMSYNC_CLOUD_URL"
	EnvFarmID   = "FARMSYNC_FARM_ID"
)

// EnvOverrides holds values derived from environment variables. Both
// overrides are optional and take precedence over the config file but
// not over CLI flags.
type EnvOverrides struct {
	ConfigPath string // FARMSYNC_CONFIG: override config file path
	CloudURL   string // FARMSYNC_CLOUD_URL: override cloud base URL
	FarmID     string // FARMSYNC_FARM_ID: override farm identity
}

// ReadEnvOverrides reads environment variables and returns any
// overrides found. This does not modify the Config; Resolve applies
// the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		CloudURL:   os.Getenv(EnvCloudURL),
		FarmID:     os.Getenv(EnvFarmID),
	}
}

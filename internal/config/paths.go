package config

import (
	"os"
	"path/filepath"
)

// appDirName is the subdirectory used under the platform config and
// cache directories.
const appDirName = "farmsync"

// DefaultConfigPath returns the platform-standard config file location,
// e.g. ~/.config/farmsync/config.toml on Linux. Falls back to a
// relative path if the user config directory cannot be determined.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(appDirName, "config.toml")
	}

	return filepath.Join(dir, appDirName, "config.toml")
}

// DefaultPIDPath returns the platform-standard PID file location for
// the daemon, e.g. ~/.cache/farmsync/farmsync.pid on Linux.
func DefaultPIDPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(appDirName, "farmsync.pid")
	}

	return filepath.Join(dir, appDirName, "farmsync.pid")
}

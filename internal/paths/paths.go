// Package paths resolves configuration and data directory locations.
//
// Precedence, highest first:
//
//	config dir: --config-dir flag, RECORDKIT_CONFIG_DIR, platform default
//	data dir:   --data-dir flag, config.yaml data_dir, RECORDKIT_DATA_DIR, $(CWD)/.recordkit-db
//
// Every resolved path is absolute.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appDirName         = "recordkit"
	DefaultDataDirName = ".recordkit-db"
	ConfigFileName     = "config.yaml"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "RECORDKIT_CONFIG_DIR"
	EnvDataDir   = "RECORDKIT_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $<xdgVar>/recordkit, falling back to ~/<fallback...>/recordkit
// on Linux. Other platforms use os.UserConfigDir for both kinds of directory.
func xdgDir(xdgVar string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appDirName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), appDirName)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/recordkit (fallback ~/.config/recordkit)
// macOS:   ~/Library/Application Support/recordkit
// Windows: %APPDATA%/recordkit
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific data directory.
//
// Linux:   $XDG_DATA_HOME/recordkit (fallback ~/.local/share/recordkit)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// firstAbs returns the absolute form of the first non-empty candidate.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			abs, err := filepath.Abs(c)
			return abs, true, err
		}
	}
	return "", false, nil
}

// ResolveConfigDir returns the configuration directory: flag, then
// RECORDKIT_CONFIG_DIR, then DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok {
		return dir, err
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory: flag, then the data_dir value
// from config.yaml, then RECORDKIT_DATA_DIR, then $(CWD)/.recordkit-db so
// each project keeps its own database.
func ResolveDataDir(flag, configValue string) (string, error) {
	if dir, ok, err := firstAbs(flag, configValue, os.Getenv(EnvDataDir)); ok {
		return dir, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the path of config.yaml inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

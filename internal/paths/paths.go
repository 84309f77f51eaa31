// Package paths resolves configuration and data directory locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".qadesk"
	DefaultDataDirName   = ".qadesk-db"
)

// appName names the per-user platform directories.
const appName = "qadesk"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "QADESK_CONFIG_DIR"
	EnvDataDir   = "QADESK_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/qadesk (fallback ~/.config/qadesk)
// macOS:   ~/Library/Application Support/qadesk
// Windows: %APPDATA%/qadesk
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	default:
		// macOS and Windows use os.UserConfigDir which returns
		// ~/Library/Application Support on macOS and %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > QADESK_CONFIG_DIR env > DefaultConfigDir().
//
// If flag is non-empty it wins. Otherwise the QADESK_CONFIG_DIR environment
// variable is checked. If neither is set, the platform default is returned.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > QADESK_DATA_DIR env > $(CWD)/.qadesk-db.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// Dirs is a resolved configuration and data directory pair.
type Dirs struct {
	Config string
	Data   string
}

// ConfigFile returns the path of config.yaml.
func (d Dirs) ConfigFile() string {
	return filepath.Join(d.Config, ConfigFileName)
}

// Ensure creates both directories when missing.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Config, d.Data} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

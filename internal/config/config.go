// Package config loads qadesk settings from config.yaml and the environment.
//
// Precedence is flag > QADESK_* environment variable > config.yaml > default.
// Flags are bound by the CLI; this package handles the rest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/qadesk/internal/logging"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// Keys recognized in config.yaml. Nested keys map to QADESK_LOG_LEVEL and so
// on in the environment.
const (
	KeyBackend          = "backend"
	KeyDataDir          = "data_dir"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyLogOutput        = "log.output"
	KeyHTTPAddr         = "http.addr"
	KeyOperationTimeout = "service.operation_timeout"
	KeyMaxNestingDepth  = "store.max_nesting_depth"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QADESK"

// Defaults.
const (
	DefaultHTTPAddr         = "127.0.0.1:8080"
	DefaultOperationTimeout = 5 * time.Second
	DefaultMaxNestingDepth  = 1
)

const (
	configFileName = "config"
	configFileType = "yaml"
)

// DefaultYAML is written to config.yaml on first run.
const DefaultYAML = `# qadesk configuration

# Storage backend
backend: sqlite

# Data directory (optional; overridable by --data-dir)
# data_dir:

log:
  level: info    # debug, info, warn, error
  format: json   # json or console
  output: stderr # stderr, stdout or a file path

http:
  addr: 127.0.0.1:8080

service:
  operation_timeout: 5s

store:
  # Longest allowed task parent chain. 1 allows one level of subtasks;
  # 0 removes the limit.
  max_nesting_depth: 1
`

// Config is the resolved configuration.
type Config struct {
	Backend          string
	DataDir          string
	Log              logging.Config
	HTTPAddr         string
	OperationTimeout time.Duration
	MaxNestingDepth  int
}

// Store returns the store attach configuration.
func (c *Config) Store() types.Config {
	return types.Config{Backend: c.Backend, DataDir: c.DataDir}
}

// New returns a viper instance with defaults and environment binding but no
// file loaded.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBackend, types.BackendSQLite)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyLogOutput, "stderr")
	v.SetDefault(KeyHTTPAddr, DefaultHTTPAddr)
	v.SetDefault(KeyOperationTimeout, DefaultOperationTimeout)
	v.SetDefault(KeyMaxNestingDepth, DefaultMaxNestingDepth)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.yaml from configDir, writing the default file first when
// none exists.
func Load(configDir string) (*viper.Viper, error) {
	if err := EnsureDefaultFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// EnsureDefaultFile creates configDir and a default config.yaml when the
// file does not exist. An existing file is left untouched.
func EnsureDefaultFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(configDir, configFileName+"."+configFileType)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(DefaultYAML), 0o644)
}

// Decode extracts a validated Config from v.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Backend: v.GetString(KeyBackend),
		DataDir: v.GetString(KeyDataDir),
		Log: logging.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			Output: v.GetString(KeyLogOutput),
		},
		HTTPAddr:         v.GetString(KeyHTTPAddr),
		OperationTimeout: v.GetDuration(KeyOperationTimeout),
		MaxNestingDepth:  v.GetInt(KeyMaxNestingDepth),
	}
	if err := cfg.Store().Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyBackend, err)
	}
	if cfg.OperationTimeout <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", KeyOperationTimeout, v.GetString(KeyOperationTimeout))
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return nil, fmt.Errorf("%s must be json or console, got %q", KeyLogFormat, cfg.Log.Format)
	}
	return cfg, nil
}

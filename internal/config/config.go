// Package config loads smmap's process configuration: logging, metrics,
// and a default cache layout. No other package of this module imports it;
// cmd/smmapctl and pkg/fetch take their settings from flags and options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the top-level process configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables (SMMAP_*)
//  2. Configuration file (YAML)
//  3. Defaults applied by ApplyDefaults
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" validate:"required"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache" validate:"required"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// MetricsConfig controls the optional Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen" validate:"omitempty,hostname_port"`
}

// CacheConfig describes a default cache layout (block size and file paths).
type CacheConfig struct {
	BlockSize     uint64 `mapstructure:"block_size" yaml:"block_size" validate:"required,gt=0"`
	Directory     string `mapstructure:"directory" yaml:"directory" validate:"required"`
	DataFile      string `mapstructure:"data_file" yaml:"data_file" validate:"required"`
	IndexFile     string `mapstructure:"index_file" yaml:"index_file" validate:"required"`
	MaxFetchBlock uint64 `mapstructure:"max_fetch_blocks" yaml:"max_fetch_blocks"`
}

// DataPath returns the absolute path to the configured data file.
func (c CacheConfig) DataPath() string { return filepath.Join(c.Directory, c.DataFile) }

// IndexPath returns the absolute path to the configured index file.
func (c CacheConfig) IndexPath() string { return filepath.Join(c.Directory, c.IndexFile) }

// GetDefaultConfig returns a Config populated entirely with defaults; no
// config file or environment variables are consulted.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills any zero-valued fields of cfg with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = "127.0.0.1:9090"
	}

	if cfg.Cache.BlockSize == 0 {
		cfg.Cache.BlockSize = 4 << 20 // 4MiB
	}
	if cfg.Cache.Directory == "" {
		cfg.Cache.Directory = defaultCacheDir()
	}
	if cfg.Cache.DataFile == "" {
		cfg.Cache.DataFile = "smmap.data"
	}
	if cfg.Cache.IndexFile == "" {
		cfg.Cache.IndexFile = "smmap.index"
	}
	if cfg.Cache.MaxFetchBlock == 0 {
		cfg.Cache.MaxFetchBlock = 1024
	}
}

func defaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "smmap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smmap"
	}
	return filepath.Join(home, ".cache", "smmap")
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	return nil
}

// Load reads configuration from defaults, file, and environment, in that
// order of increasing precedence, and validates the result. Environment
// variables are applied only when a config file is found, and only to keys
// that file sets.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := GetDefaultConfig()
	if found {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
		ApplyDefaults(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SMMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(".")
	v.SetConfigName("smmap")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

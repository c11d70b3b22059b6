package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Logging.Level = %q, want INFO", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
	if cfg.Cache.BlockSize != 4<<20 {
		t.Errorf("Cache.BlockSize = %d, want %d", cfg.Cache.BlockSize, 4<<20)
	}
	if cfg.Cache.DataFile != "smmap.data" || cfg.Cache.IndexFile != "smmap.index" {
		t.Errorf("Cache file defaults = %+v", cfg.Cache)
	}
	if cfg.Cache.MaxFetchBlock != 1024 {
		t.Errorf("Cache.MaxFetchBlock = %d, want 1024", cfg.Cache.MaxFetchBlock)
	}
}

func TestApplyDefaultsUppercasesLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want DEBUG", cfg.Logging.Level)
	}
}

func TestGetDefaultConfigValidates(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation to reject an unrecognized log level")
	}
}

func TestDataPathAndIndexPathJoinDirectory(t *testing.T) {
	c := CacheConfig{Directory: "/var/cache/smmap", DataFile: "a.data", IndexFile: "a.index"}
	if got, want := c.DataPath(), filepath.Join("/var/cache/smmap", "a.data"); got != want {
		t.Errorf("DataPath() = %q, want %q", got, want)
	}
	if got, want := c.IndexPath(), filepath.Join("/var/cache/smmap", "a.index"); got != want {
		t.Errorf("IndexPath() = %q, want %q", got, want)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "smmap.yaml")
	contents := "cache:\n  block_size: 1048576\n  directory: /tmp/smmap-test\n  data_file: custom.data\n  index_file: custom.index\n"
	if err := os.WriteFile(configPath, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.BlockSize != 1048576 {
		t.Errorf("Cache.BlockSize = %d, want 1048576", cfg.Cache.BlockSize)
	}
	if cfg.Cache.DataFile != "custom.data" {
		t.Errorf("Cache.DataFile = %q, want custom.data", cfg.Cache.DataFile)
	}
	// Fields absent from the file still get their defaults.
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Logging.Level = %q, want INFO", cfg.Logging.Level)
	}
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.BlockSize != 4<<20 {
		t.Errorf("Cache.BlockSize = %d, want default", cfg.Cache.BlockSize)
	}
}

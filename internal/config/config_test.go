package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hardware-inventory/internal/kvstore"
)

var envKeys = []string{
	"CONFIG_FILE", "LISTEN_ADDR", "STORAGE_DRIVER", "STORAGE_KEY", "FILE_ROOT",
	"SQLITE_PATH", "DB_DSN", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PREFIX", "S3_PATH_STYLE",
	"PERSIST_TIMEOUT", "ENABLE_METRICS", "ENABLE_DOCS", "MAPPING_PATH",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("Expected default LISTEN_ADDR, got %s", cfg.ListenAddr)
	}
	if cfg.StorageDriver != "file" {
		t.Errorf("Expected default STORAGE_DRIVER, got %s", cfg.StorageDriver)
	}
	if cfg.StorageKey != "hardware_inventory" {
		t.Errorf("Expected default STORAGE_KEY, got %s", cfg.StorageKey)
	}
	if cfg.PersistTimeout != 5*time.Second {
		t.Errorf("Expected default PERSIST_TIMEOUT, got %v", cfg.PersistTimeout)
	}
	if cfg.EnableMetrics {
		t.Error("Expected metrics disabled by default")
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PERSIST_TIMEOUT", "2s")
	t.Setenv("ENABLE_METRICS", "TRUE")
	t.Setenv("ENABLE_DOCS", "true")
	t.Setenv("MAPPING_PATH", "configs/mapping/hardware.yaml")
	t.Setenv("S3_PATH_STYLE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Errorf("Expected LISTEN_ADDR from env, got %s", cfg.ListenAddr)
	}
	if cfg.StorageDriver != "redis" {
		t.Errorf("Expected STORAGE_DRIVER from env, got %s", cfg.StorageDriver)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("Expected REDIS_DB from env, got %d", cfg.RedisDB)
	}
	if cfg.PersistTimeout != 2*time.Second {
		t.Errorf("Expected PERSIST_TIMEOUT from env, got %v", cfg.PersistTimeout)
	}
	if !cfg.EnableMetrics {
		t.Error("Expected ENABLE_METRICS from env")
	}
	if !cfg.S3PathStyle {
		t.Error("Expected S3_PATH_STYLE from env")
	}
	if !cfg.EnableDocs {
		t.Error("Expected ENABLE_DOCS from env")
	}
	if cfg.MappingPath != "configs/mapping/hardware.yaml" {
		t.Errorf("Expected MAPPING_PATH from env, got %s", cfg.MappingPath)
	}
}

func TestLoadInvalidNumbers(t *testing.T) {
	for _, tc := range []struct{ key, value string }{
		{"REDIS_DB", "zero"},
		{"PERSIST_TIMEOUT", "soon"},
	} {
		t.Run(tc.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() should fail with %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "inventory.yaml")
	content := []byte(`
listen_addr: ":7000"
storage_driver: sqlite
sqlite_path: /tmp/inv.db
persist_timeout: 750ms
log_format: console
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LISTEN_ADDR", ":7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ListenAddr != ":7001" {
		t.Errorf("Expected env to override file, got %s", cfg.ListenAddr)
	}
	if cfg.StorageDriver != "sqlite" || cfg.SQLitePath != "/tmp/inv.db" {
		t.Errorf("Expected sqlite settings from file, got %s %s", cfg.StorageDriver, cfg.SQLitePath)
	}
	if cfg.PersistTimeout != 750*time.Millisecond {
		t.Errorf("Expected persist_timeout from file, got %v", cfg.PersistTimeout)
	}
	if cfg.StorageKey != "hardware_inventory" {
		t.Errorf("Expected default storage key to survive, got %s", cfg.StorageKey)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "inventory.yaml")
	if err := os.WriteFile(path, []byte("enable_docs: true\nmapping_path: custom.yaml\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if !cfg.EnableDocs || cfg.MappingPath != "custom.yaml" {
		t.Errorf("Expected docs and mapping from file, got %v %q", cfg.EnableDocs, cfg.MappingPath)
	}

	cfg, err = LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile(\"\") failed: %v", err)
	}
	if cfg.EnableDocs {
		t.Error("Expected defaults without a file")
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Load() should fail with a missing config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Error("Load() should fail with malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	valid := func(mut func(c *Config)) *Config {
		c := Default()
		mut(c)
		return c
	}

	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{"defaults", Default(), false},
		{"memory driver", valid(func(c *Config) { c.StorageDriver = "memory" }), false},
		{"unknown driver", valid(func(c *Config) { c.StorageDriver = "tape" }), true},
		{"empty key", valid(func(c *Config) { c.StorageKey = "  " }), true},
		{"zero timeout", valid(func(c *Config) { c.PersistTimeout = 0 }), true},
		{"postgres without dsn", valid(func(c *Config) { c.StorageDriver = "postgres" }), true},
		{"postgres with dsn", valid(func(c *Config) {
			c.StorageDriver = "postgres"
			c.DatabaseDSN = "postgres://localhost/inventory"
		}), false},
		{"redis without addr", valid(func(c *Config) { c.StorageDriver = "redis" }), true},
		{"s3 without bucket", valid(func(c *Config) { c.StorageDriver = "s3" }), true},
		{"s3 with bucket", valid(func(c *Config) {
			c.StorageDriver = "s3"
			c.S3Bucket = "inventory"
		}), false},
		{"bad log format", valid(func(c *Config) { c.LogFormat = "xml" }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadAndValidate()
	if err != nil {
		t.Errorf("LoadAndValidate() failed with valid config: %v", err)
	}
	if cfg == nil {
		t.Error("LoadAndValidate() returned nil config with valid config")
	}

	t.Setenv("STORAGE_DRIVER", "postgres")
	if _, err := LoadAndValidate(); err == nil {
		t.Error("LoadAndValidate() should fail without DB_DSN")
	}
}

func TestKVConfig(t *testing.T) {
	c := Default()
	c.StorageDriver = "s3"
	c.S3Bucket = "bucket"
	c.S3PathStyle = true

	kv := c.KVConfig()
	if kv.Driver != kvstore.DriverS3 {
		t.Errorf("Expected s3 driver, got %s", kv.Driver)
	}
	if kv.S3.Bucket != "bucket" || !kv.S3.PathStyle {
		t.Errorf("Expected S3 settings to carry over, got %+v", kv.S3)
	}
	if kv.FileRoot != "./data" {
		t.Errorf("Expected file root, got %s", kv.FileRoot)
	}

	lc := c.LogConfig()
	if lc.Level != "info" || lc.Format != "json" {
		t.Errorf("unexpected log config %+v", lc)
	}
}

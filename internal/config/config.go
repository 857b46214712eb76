package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hardware-inventory/internal/kvstore"
	"hardware-inventory/internal/logging"
)

type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableDocs    bool   `yaml:"enable_docs"`
	MappingPath   string `yaml:"mapping_path"`

	StorageDriver  string        `yaml:"storage_driver"`
	StorageKey     string        `yaml:"storage_key"`
	PersistTimeout time.Duration `yaml:"persist_timeout"`
	FileRoot       string        `yaml:"file_root"`
	SQLitePath     string        `yaml:"sqlite_path"`
	DatabaseDSN    string        `yaml:"db_dsn"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	S3Bucket       string        `yaml:"s3_bucket"`
	S3Region       string        `yaml:"s3_region"`
	S3Endpoint     string        `yaml:"s3_endpoint"`
	S3Prefix       string        `yaml:"s3_prefix"`
	S3PathStyle    bool          `yaml:"s3_path_style"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogOutput string `yaml:"log_output"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ListenAddr:     ":8080",
		StorageDriver:  string(kvstore.DriverFile),
		StorageKey:     "hardware_inventory",
		PersistTimeout: 5 * time.Second,
		FileRoot:       "./data",
		SQLitePath:     "inventory.db",
		LogLevel:       "info",
		LogFormat:      "json",
		LogOutput:      "stderr",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit YAML file; an empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.StorageKey = getEnv("STORAGE_KEY", cfg.StorageKey)
	cfg.FileRoot = getEnv("FILE_ROOT", cfg.FileRoot)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.DatabaseDSN = getEnv("DB_DSN", cfg.DatabaseDSN)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3Prefix = getEnv("S3_PREFIX", cfg.S3Prefix)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.LogOutput = getEnv("LOG_OUTPUT", cfg.LogOutput)

	cfg.MappingPath = getEnv("MAPPING_PATH", cfg.MappingPath)

	if v := os.Getenv("ENABLE_METRICS"); v != "" {
		cfg.EnableMetrics = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("ENABLE_DOCS"); v != "" {
		cfg.EnableDocs = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("S3_PATH_STYLE"); v != "" {
		cfg.S3PathStyle = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = db
	}
	if v := os.Getenv("PERSIST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PERSIST_TIMEOUT %q: %w", v, err)
		}
		cfg.PersistTimeout = d
	}

	return cfg, nil
}

// LoadAndValidate loads the configuration and validates it.
func LoadAndValidate() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected storage driver has what it needs.
func (c *Config) Validate() error {
	driver, err := kvstore.ParseDriver(c.StorageDriver)
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return errors.New("STORAGE_KEY cannot be empty")
	}
	if c.PersistTimeout <= 0 {
		return errors.New("PERSIST_TIMEOUT must be positive")
	}
	switch driver {
	case kvstore.DriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("DB_DSN is required for the postgres driver")
		}
	case kvstore.DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis driver")
		}
	case kvstore.DriverS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 driver")
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// KVConfig returns the storage driver configuration.
func (c *Config) KVConfig() kvstore.Config {
	return kvstore.Config{
		Driver:        kvstore.Driver(c.StorageDriver),
		FileRoot:      c.FileRoot,
		SQLitePath:    c.SQLitePath,
		PostgresDSN:   c.DatabaseDSN,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		S3: kvstore.S3Config{
			Bucket:          c.S3Bucket,
			Region:          c.S3Region,
			Endpoint:        c.S3Endpoint,
			Prefix:          c.S3Prefix,
			PathStyle:       c.S3PathStyle,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		},
	}
}

// LogConfig returns the logger configuration.
func (c *Config) LogConfig() logging.Config {
	return logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Package kvstore provides the key-value persistence providers the inventory
// mirrors its state into. Every driver stores opaque blobs under string keys.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// Driver identifies a concrete key-value backend.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory (tests)
	DriverFile     Driver = "file"     // one file per key under a root directory (default)
	DriverSQLite   Driver = "sqlite"   // single-file SQLite database
	DriverPostgres Driver = "postgres" // PostgreSQL table
	DriverRedis    Driver = "redis"    // Redis strings
	DriverS3       Driver = "s3"       // S3 / MinIO objects
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the persistence provider interface.
type Store interface {
	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the blob stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Close releases connections or handles held by the store.
	Close() error
	// Driver returns the backend driver.
	Driver() Driver
}

// Config selects and configures a driver. Only the fields of the selected
// driver are read.
type Config struct {
	Driver Driver

	FileRoot   string // file: directory root (default ./data)
	SQLitePath string // sqlite: database path (default inventory.db)

	PostgresDSN string // postgres: connection string

	RedisAddr      string // redis: host:port
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string // default "inventory:"

	S3 S3Config
}

// Open constructs the Store selected by cfg.Driver (file when empty).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFile
	}

	var (
		store Store
		err   error
	)
	switch driver {
	case DriverMemory:
		store = NewMemory()
	case DriverFile:
		store, err = NewFile(cfg.FileRoot)
	case DriverSQLite:
		store, err = NewSQLite(ctx, cfg.SQLitePath)
	case DriverPostgres:
		store, err = NewPostgres(ctx, cfg.PostgresDSN)
	case DriverRedis:
		store, err = NewRedis(ctx, RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
	case DriverS3:
		store, err = NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// ParseDriver validates a driver name.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(s); d {
	case DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverRedis, DriverS3:
		return d, nil
	default:
		return "", fmt.Errorf("unknown storage driver %q", s)
	}
}

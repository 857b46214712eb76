package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"hardware-inventory/internal/config"
	"hardware-inventory/internal/inventory"
	"hardware-inventory/internal/kvstore"
)

const usage = `Usage: migrate_store --to=DRIVER [--to-file-root=DIR] [--to-sqlite=PATH] [--to-dsn=DSN]
                     [--to-redis=ADDR] [--to-bucket=NAME] [--force]

Copies the inventory from the storage configured by the environment (STORAGE_DRIVER, ...)
to the destination driver.`

func main() {
	ctx := context.Background()

	src, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	dst := *src
	force := false
	for _, arg := range os.Args[1:] {
		name, value, _ := strings.Cut(arg, "=")
		switch name {
		case "--to":
			dst.StorageDriver = value
		case "--to-file-root":
			dst.FileRoot = value
		case "--to-sqlite":
			dst.SQLitePath = value
		case "--to-dsn":
			dst.DatabaseDSN = value
		case "--to-redis":
			dst.RedisAddr = value
		case "--to-bucket":
			dst.S3Bucket = value
		case "--force":
			force = true
		default:
			fmt.Printf("Unknown argument %q\n%s\n", arg, usage)
			os.Exit(1)
		}
	}
	if dst.KVConfig() == src.KVConfig() {
		fmt.Println("Error: destination is the same as the source")
		fmt.Println(usage)
		os.Exit(1)
	}
	if err := dst.Validate(); err != nil {
		log.Fatalf("Destination error: %v", err)
	}

	// Loading through the store rejects a corrupt source before anything is written
	store, err := inventory.Open(ctx, src.KVConfig(), inventory.WithKey(src.StorageKey))
	if err != nil {
		log.Fatalf("Failed to open source (%s): %v", src.StorageDriver, err)
	}
	groups := store.Groups()
	if err := store.Close(ctx); err != nil {
		log.Fatalf("Failed to close source: %v", err)
	}

	blob, err := json.Marshal(groups)
	if err != nil {
		log.Fatalf("Failed to encode inventory: %v", err)
	}
	fmt.Printf("Source %s: %d groups, %d items, sha256 %x\n",
		src.StorageDriver, len(groups), groups.ItemCount(), sha256.Sum256(blob))

	target, err := kvstore.Open(ctx, dst.KVConfig())
	if err != nil {
		log.Fatalf("Failed to open destination (%s): %v", dst.StorageDriver, err)
	}
	defer target.Close()

	writeCtx, cancel := context.WithTimeout(ctx, dst.PersistTimeout+10*time.Second)
	defer cancel()

	// Check if already populated
	_, err = target.Get(writeCtx, dst.StorageKey)
	switch {
	case err == nil && !force:
		log.Fatalf("Destination %s already holds %q; use --force to overwrite", dst.StorageDriver, dst.StorageKey)
	case err != nil && !errors.Is(err, kvstore.ErrNotFound):
		log.Fatalf("Failed to read destination: %v", err)
	}

	if err := target.Set(writeCtx, dst.StorageKey, blob); err != nil {
		log.Fatalf("Failed to write destination: %v", err)
	}

	// Read back through the store to verify
	check := inventory.New(target, inventory.WithKey(dst.StorageKey))
	if err := check.Load(writeCtx); err != nil {
		log.Fatalf("Verification failed: %v", err)
	}
	count := check.Len()
	if err := check.Close(writeCtx); err != nil {
		log.Printf("Failed to stop verifier: %v", err)
	}
	if count != groups.ItemCount() {
		log.Fatalf("Verification failed: wrote %d items, read back %d", groups.ItemCount(), count)
	}

	fmt.Printf("Migrated %d items to %s successfully\n", count, dst.StorageDriver)
}

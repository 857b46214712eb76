package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"hardware-inventory/internal/config"
	"hardware-inventory/internal/inventory"
	"hardware-inventory/pkg/importer"
)

const usage = "Usage: import_excel --file=path.xlsx [--sheet=Inventory] [--mapping=configs/mapping/hardware.yaml] [--max-errors=50] [--dry-run]"

func main() {
	var filePath, sheet, mappingPath string
	maxErrors := 50
	dryRun := false

	for _, arg := range os.Args[1:] {
		switch {
		case strings.HasPrefix(arg, "--file="):
			filePath = strings.TrimPrefix(arg, "--file=")
		case strings.HasPrefix(arg, "--sheet="):
			sheet = strings.TrimPrefix(arg, "--sheet=")
		case strings.HasPrefix(arg, "--mapping="):
			mappingPath = strings.TrimPrefix(arg, "--mapping=")
		case strings.HasPrefix(arg, "--max-errors="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--max-errors="))
			if err != nil || n <= 0 {
				log.Fatalf("Invalid max-errors: %q", arg)
			}
			maxErrors = n
		case arg == "--dry-run":
			dryRun = true
		default:
			fmt.Printf("Unknown argument %q\n%s\n", arg, usage)
			os.Exit(1)
		}
	}

	if filePath == "" {
		fmt.Println("Error: file is required")
		fmt.Println(usage)
		os.Exit(1)
	}

	// Storage comes from the same environment as the API server
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if mappingPath == "" {
		mappingPath = cfg.MappingPath
	}

	ctx := context.Background()
	store, err := inventory.Open(ctx, cfg.KVConfig(),
		inventory.WithKey(cfg.StorageKey),
		inventory.WithPersistTimeout(cfg.PersistTimeout),
	)
	if err != nil {
		log.Fatalf("Failed to open inventory (%s): %v", cfg.StorageDriver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.PersistTimeout+time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Printf("Failed to flush inventory: %v", err)
		}
	}()

	file, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("Failed to open Excel file: %v", err)
	}
	defer file.Close()

	fmt.Printf("Importing from %s into %s storage (dry_run=%v)\n", filePath, cfg.StorageDriver, dryRun)
	fmt.Println("=" + strings.Repeat("=", 60))

	summary, err := importer.ImportExcel(ctx, store, file, importer.ImportOptions{
		Sheet:       sheet,
		MappingPath: mappingPath,
		DryRun:      dryRun,
		MaxErrors:   maxErrors,
	})
	if err != nil {
		log.Printf("Import failed: %v", err)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("IMPORT SUMMARY")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("Sheet: %s\n", summary.Sheet)
	fmt.Printf("Total inserted: %d\n", summary.Inserted)
	fmt.Printf("Total updated: %d\n", summary.Updated)
	fmt.Printf("Total skipped: %d\n", summary.Skipped)
	fmt.Printf("Total errors: %d\n", summary.Errors)
	fmt.Printf("Dry run: %v\n", summary.DryRun)

	if len(summary.Samples) > 0 {
		fmt.Println("\nError samples:")
		for _, sample := range summary.Samples {
			if sample.Field != "" {
				fmt.Printf("  Row %d (%s): %s\n", sample.Row, sample.Field, sample.Message)
			} else {
				fmt.Printf("  Row %d: %s\n", sample.Row, sample.Message)
			}
		}
	}
	fmt.Printf("Items in inventory: %d\n", store.Len())
}

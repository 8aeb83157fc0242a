package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"rdw-inventory-api/internal/config"
	"rdw-inventory-api/internal/logger"
	"rdw-inventory-api/internal/storage/postgres"
	"rdw-inventory-api/pkg/importer"
)

func main() {
	var (
		filePath    = flag.String("file", "", "path to the .xlsx workbook")
		mappingPath = flag.String("mapping", "", "YAML header mapping (default: built-in)")
		dryRun      = flag.Bool("dry-run", false, "validate and roll back")
		maxErrors   = flag.Int("max-errors", 50, "abort after this many failed rows")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: import_excel -file=path.xlsx [-mapping=configs/mapping/equipment.yaml] [-dry-run] [-max-errors=50]")
		os.Exit(1)
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DB_DSN environment variable is required")
	}
	lg, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{DSN: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		lg.Fatal("connect", zap.Error(err))
	}
	defer pool.Close()

	file, err := os.Open(*filePath)
	if err != nil {
		lg.Fatal("open workbook", zap.Error(err))
	}
	defer file.Close()

	fmt.Printf("Importing equipment from %s (dry_run=%v)\n", *filePath, *dryRun)
	fmt.Println(strings.Repeat("=", 60))

	summary, err := importer.New(pool, lg).Import(ctx, file, importer.Options{
		MappingPath: *mappingPath,
		DryRun:      *dryRun,
		MaxErrors:   *maxErrors,
	})

	fmt.Printf("Sheet: %s\n", summary.Sheet)
	fmt.Printf("Inserted: %d\n", summary.Inserted)
	fmt.Printf("Updated: %d\n", summary.Updated)
	fmt.Printf("Skipped: %d\n", summary.Skipped)
	fmt.Printf("Errors: %d\n", summary.Errors)
	fmt.Printf("Dry run: %v\n", summary.DryRun)
	if len(summary.Samples) > 0 {
		fmt.Println("\nError samples:")
		for _, sample := range summary.Samples {
			fmt.Printf("  Row %d: %s\n", sample.Row, sample.Message)
		}
	}

	if err != nil {
		if errors.Is(err, importer.ErrTooManyErrors) {
			os.Exit(2)
		}
		lg.Fatal("import failed", zap.Error(err))
	}
}

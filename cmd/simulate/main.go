// Package main replays a scenario file against a fresh world and persists
// the resulting records.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"govtoken-lab/internal/reporting"
	"govtoken-lab/internal/scenario"
	"govtoken-lab/internal/storage"
	chstore "govtoken-lab/internal/storage/clickhouse"
	"govtoken-lab/internal/storage/memory"
	"govtoken-lab/internal/storage/migrations"
	pgstore "govtoken-lab/internal/storage/postgres"
)

// runStores holds the storage implementations a run writes to.
type runStores struct {
	transferStore   storage.TransferRecordStore
	withdrawalStore storage.WithdrawalRecordStore
	feeRevenueStore storage.FeeRevenueStore
}

func main() {
	scenarioPath := flag.String("scenario", "", "Path to scenario JSON file (required)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	migrate := flag.Bool("migrate", false, "Run database migrations before the scenario")
	outputDir := flag.String("output-dir", "", "Write a run report to this directory after the scenario")
	bucketMs := flag.Int64("bucket-ms", 0, "Fee revenue bucket size in ms (default 60000)")
	flag.Parse()

	logger := log.New(os.Stdout, "[simulate] ", log.LstdFlags)

	if *scenarioPath == "" {
		logger.Fatal("--scenario is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		logger.Fatalf("Failed to load scenario: %v", err)
	}

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	runner := scenario.NewRunner(scenario.RunnerOptions{
		TransferStore:   stores.transferStore,
		WithdrawalStore: stores.withdrawalStore,
		FeeRevenueStore: stores.feeRevenueStore,
		Logger:          logger,
		BucketMs:        *bucketMs,
	})

	start := time.Now()
	res, err := runner.Run(ctx, sc)
	if err != nil {
		logger.Fatalf("Scenario failed: %v", err)
	}

	logger.Printf("Scenario %q completed in %v", res.Scenario, time.Since(start))
	logger.Printf("  run id:      %s", res.RunID)
	logger.Printf("  ops applied: %d (rejected as expected: %d)", res.OpsApplied, res.OpsRejected)
	logger.Printf("  transfers:   %d", len(res.Transfers))
	logger.Printf("  withdrawals: %d", len(res.Withdrawals))
	logger.Printf("  revenue:     %d buckets", len(res.Revenue))
	logger.Printf("  supply:      %s", res.FinalSupply)

	if *outputDir != "" {
		if err := writeReport(ctx, stores, res.RunID, *outputDir); err != nil {
			logger.Fatalf("Failed to write report: %v", err)
		}
		logger.Printf("Report written to %s/", *outputDir)
	}
}

// createStores creates memory or database-backed stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool) (*runStores, func(), error) {
	if useMemory {
		stores := &runStores{
			transferStore:   memory.NewTransferRecordStore(),
			withdrawalStore: memory.NewWithdrawalRecordStore(),
			feeRevenueStore: memory.NewFeeRevenueStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	var chConn *chstore.Conn
	if migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	} else {
		chConn, err = chstore.NewConn(ctx, clickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &runStores{
		transferStore:   pgstore.NewTransferRecordStore(pool),
		withdrawalStore: pgstore.NewWithdrawalRecordStore(pool),
		feeRevenueStore: chstore.NewFeeRevenueStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// writeReport renders the run report and CSVs into dir.
func writeReport(ctx context.Context, stores *runStores, runID, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	gen := reporting.NewGenerator(stores.transferStore, stores.withdrawalStore, stores.feeRevenueStore)
	report, err := gen.Generate(ctx, runID)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, "RUN_REPORT.md"),
		[]byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "FEE_REVENUE.csv"),
		[]byte(reporting.RenderCSV(report.Revenue)), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "WITHDRAWALS.csv"),
		[]byte(reporting.RenderWithdrawalsCSV(report.Withdrawals)), 0644)
}

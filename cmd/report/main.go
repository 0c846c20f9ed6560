// Package main generates a run report from previously persisted records.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"govtoken-lab/internal/reporting"
	chstore "govtoken-lab/internal/storage/clickhouse"
	pgstore "govtoken-lab/internal/storage/postgres"
)

func main() {
	runID := flag.String("run-id", "", "Run identifier to report on (required)")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	fixedClock := flag.Bool("fixed-clock", false, "Use a fixed timestamp for deterministic output")
	flag.Parse()

	ctx := context.Background()

	if *runID == "" {
		fmt.Fprintln(os.Stderr, "Error: --run-id is required")
		os.Exit(1)
	}
	if *postgresDSN == "" || *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required")
		os.Exit(1)
	}

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	chConn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer chConn.Close()

	gen := reporting.NewGenerator(
		pgstore.NewTransferRecordStore(pool),
		pgstore.NewWithdrawalRecordStore(pool),
		chstore.NewFeeRevenueStore(chConn),
	)
	if *fixedClock {
		fixedTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		gen = gen.WithClock(func() time.Time { return fixedTime })
	}

	report, err := gen.Generate(ctx, *runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	files := map[string]string{
		"RUN_REPORT.md":   reporting.RenderMarkdown(report),
		"FEE_REVENUE.csv": reporting.RenderCSV(report.Revenue),
		"WITHDRAWALS.csv": reporting.RenderWithdrawalsCSV(report.Withdrawals),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(*outputDir, name), []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Println("Run report generated successfully:")
	fmt.Printf("  - %s/RUN_REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/FEE_REVENUE.csv\n", *outputDir)
	fmt.Printf("  - %s/WITHDRAWALS.csv\n", *outputDir)
}

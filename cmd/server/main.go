// Package main provides the lab server:
// - Scenario runs submitted over HTTP, persisted to storage
// - Live token and treasury events streamed over websocket
// - Run reports rendered on demand
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/observability"
	"govtoken-lab/internal/reporting"
	"govtoken-lab/internal/scenario"
	"govtoken-lab/internal/storage"
	chstore "govtoken-lab/internal/storage/clickhouse"
	"govtoken-lab/internal/storage/memory"
	"govtoken-lab/internal/storage/migrations"
	pgstore "govtoken-lab/internal/storage/postgres"
	"govtoken-lab/internal/stream"
)

// Server holds all components of the lab service.
type Server struct {
	stores *allStores
	hub    *stream.Hub
	logger *log.Logger

	// State
	mu         sync.Mutex
	started    time.Time
	lastRunID  string
	lastRunAt  time.Time
	runsOK     int
	runsFailed int
	running    bool
}

// allStores holds all storage implementations.
type allStores struct {
	transferStore   storage.TransferRecordStore
	withdrawalStore storage.WithdrawalRecordStore
	feeRevenueStore storage.FeeRevenueStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	migrate := flag.Bool("migrate", false, "Run database migrations on startup")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	hub := stream.NewHub(nil, log.New(os.Stdout, "[stream] ", log.LstdFlags))
	defer hub.Close()

	server := &Server{
		stores:  stores,
		hub:     hub,
		logger:  logger,
		started: time.Now(),
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		hub.Close()
		cancel()
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// routes wires all HTTP endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/report", s.handleReport)
	mux.Handle("/ws", s.hub)

	return mux
}

// createStores creates memory or database-backed stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
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

	stores := &allStores{
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

// RunResponse is the JSON response for a completed scenario run.
type RunResponse struct {
	RunID       string `json:"run_id"`
	Scenario    string `json:"scenario"`
	OpsApplied  int    `json:"ops_applied"`
	OpsRejected int    `json:"ops_rejected"`
	Transfers   int    `json:"transfers"`
	Withdrawals int    `json:"withdrawals"`
	Revenue     int    `json:"revenue_buckets"`
	FinalSupply string `json:"final_supply"`
	DurationMs  int64  `json:"duration_ms"`
}

// handleRuns accepts a scenario as JSON and replays it. One run at a time;
// concurrent submissions get 409.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var sc domain.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		http.Error(w, fmt.Sprintf("parse scenario: %v", err), http.StatusBadRequest)
		return
	}
	if err := scenario.Validate(&sc); err != nil {
		http.Error(w, fmt.Sprintf("invalid scenario: %v", err), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "a run is already in progress", http.StatusConflict)
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runner := scenario.NewRunner(scenario.RunnerOptions{
		TransferStore:   s.stores.transferStore,
		WithdrawalStore: s.stores.withdrawalStore,
		FeeRevenueStore: s.stores.feeRevenueStore,
		Sink:            s.hub,
		Logger:          s.logger,
	})

	start := time.Now()
	res, err := runner.Run(r.Context(), &sc)

	s.mu.Lock()
	s.lastRunAt = time.Now()
	if err != nil {
		s.runsFailed++
	} else {
		s.runsOK++
		s.lastRunID = res.RunID
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Printf("Run failed: %v", err)
		http.Error(w, fmt.Sprintf("run failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RunResponse{
		RunID:       res.RunID,
		Scenario:    res.Scenario,
		OpsApplied:  res.OpsApplied,
		OpsRejected: res.OpsRejected,
		Transfers:   len(res.Transfers),
		Withdrawals: len(res.Withdrawals),
		Revenue:     len(res.Revenue),
		FinalSupply: res.FinalSupply,
		DurationMs:  time.Since(start).Milliseconds(),
	})
}

// handleReport renders a markdown report for one run.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id query parameter is required", http.StatusBadRequest)
		return
	}

	gen := reporting.NewGenerator(s.stores.transferStore, s.stores.withdrawalStore, s.stores.feeRevenueStore)
	report, err := gen.Generate(r.Context(), runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("generate report: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	LastRunID   string    `json:"last_run_id,omitempty"`
	LastRunAt   time.Time `json:"last_run_at,omitempty"`
	RunsOK      int       `json:"runs_ok"`
	RunsFailed  int       `json:"runs_failed"`
	RunRunning  bool      `json:"run_running"`
	Subscribers int       `json:"ws_subscribers"`
	Events      uint64    `json:"ws_events_emitted"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:     "running",
		Uptime:     time.Since(s.started).String(),
		LastRunID:  s.lastRunID,
		LastRunAt:  s.lastRunAt,
		RunsOK:     s.runsOK,
		RunsFailed: s.runsFailed,
		RunRunning: s.running,
	}
	s.mu.Unlock()

	resp.Subscribers = s.hub.Subscribers()
	resp.Events = s.hub.EventsEmitted()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

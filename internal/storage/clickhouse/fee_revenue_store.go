package clickhouse

import (
	"context"
	"fmt"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/storage"
)

// FeeRevenueStore implements storage.FeeRevenueStore using ClickHouse.
type FeeRevenueStore struct {
	conn *Conn
}

// NewFeeRevenueStore creates a new FeeRevenueStore.
func NewFeeRevenueStore(conn *Conn) *FeeRevenueStore {
	return &FeeRevenueStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeeRevenueStore = (*FeeRevenueStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, bucket_ms).
func (s *FeeRevenueStore) InsertBulk(ctx context.Context, points []*domain.FeeRevenuePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID    string
		bucketMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.RunID, p.BucketMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows. MergeTree does not
	// enforce uniqueness at insert time.
	for _, p := range points {
		exists, err := s.exists(ctx, p.RunID, p.BucketMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO fee_revenue_timeseries (
			run_id, bucket_ms, transfer_count, volume,
			fees_collected, fees_burned, fees_distributed
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.RunID, uint64(p.BucketMs), uint64(p.TransferCount), p.Volume,
			p.FeesCollected, p.FeesBurned, p.FeesDistributed,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by bucket ASC.
func (s *FeeRevenueStore) GetByRunID(ctx context.Context, runID string) ([]*domain.FeeRevenuePoint, error) {
	query := `
		SELECT run_id, bucket_ms, transfer_count, volume,
		       fees_collected, fees_burned, fees_distributed
		FROM fee_revenue_timeseries
		WHERE run_id = ?
		ORDER BY bucket_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanFeeRevenue(rows)
}

// GetByTimeRange retrieves points for a run within [start, end] (inclusive).
func (s *FeeRevenueStore) GetByTimeRange(ctx context.Context, runID string, start, end int64) ([]*domain.FeeRevenuePoint, error) {
	query := `
		SELECT run_id, bucket_ms, transfer_count, volume,
		       fees_collected, fees_burned, fees_distributed
		FROM fee_revenue_timeseries
		WHERE run_id = ? AND bucket_ms >= ? AND bucket_ms <= ?
		ORDER BY bucket_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanFeeRevenue(rows)
}

// exists checks if a point with the given key exists.
func (s *FeeRevenueStore) exists(ctx context.Context, runID string, bucketMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM fee_revenue_timeseries
		WHERE run_id = ? AND bucket_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, uint64(bucketMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanFeeRevenue scans multiple rows.
func scanFeeRevenue(rows chRows) ([]*domain.FeeRevenuePoint, error) {
	var points []*domain.FeeRevenuePoint

	for rows.Next() {
		var p domain.FeeRevenuePoint
		var bucketMs, transferCount uint64

		err := rows.Scan(
			&p.RunID, &bucketMs, &transferCount, &p.Volume,
			&p.FeesCollected, &p.FeesBurned, &p.FeesDistributed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fee revenue row: %w", err)
		}

		p.BucketMs = int64(bucketMs)
		p.TransferCount = int64(transferCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fee revenue rows: %w", err)
	}

	return points, nil
}

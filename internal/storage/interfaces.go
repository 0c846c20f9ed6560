package storage

import (
	"context"

	"govtoken-lab/internal/domain"
)

// TransferRecordStore provides access to transfer_records storage.
type TransferRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
	Insert(ctx context.Context, r *domain.TransferRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.TransferRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, recordID string) (*domain.TransferRecord, error)

	// GetByRunID retrieves all records for a run, ordered by seq ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TransferRecord, error)

	// GetByClass retrieves all records for a run with the given class, ordered by seq ASC.
	GetByClass(ctx context.Context, runID string, class domain.TransferClass) ([]*domain.TransferRecord, error)

	// GetByTimeRange retrieves records for a run within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, runID string, start, end int64) ([]*domain.TransferRecord, error)
}

// WithdrawalRecordStore provides access to withdrawal_records storage.
type WithdrawalRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
	Insert(ctx context.Context, r *domain.WithdrawalRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.WithdrawalRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, recordID string) (*domain.WithdrawalRecord, error)

	// GetByRunID retrieves all records for a run, ordered by seq ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.WithdrawalRecord, error)

	// GetByKind retrieves all records for a run with the given kind, ordered by seq ASC.
	GetByKind(ctx context.Context, runID string, kind domain.WithdrawalKind) ([]*domain.WithdrawalRecord, error)
}

// FeeRevenueStore provides access to fee_revenue_timeseries storage.
type FeeRevenueStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, bucket_ms).
	InsertBulk(ctx context.Context, points []*domain.FeeRevenuePoint) error

	// GetByRunID retrieves all points for a run, ordered by bucket ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.FeeRevenuePoint, error)

	// GetByTimeRange retrieves points for a run within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, runID string, start, end int64) ([]*domain.FeeRevenuePoint, error)
}

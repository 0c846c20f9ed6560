package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/storage"
)

// WithdrawalRecordStore implements storage.WithdrawalRecordStore using PostgreSQL.
type WithdrawalRecordStore struct {
	pool *Pool
}

// NewWithdrawalRecordStore creates a new WithdrawalRecordStore.
func NewWithdrawalRecordStore(pool *Pool) *WithdrawalRecordStore {
	return &WithdrawalRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WithdrawalRecordStore = (*WithdrawalRecordStore)(nil)

const withdrawalRecordColumns = `
	record_id, run_id, seq, kind, token_in, token_out,
	amount_in, amount_out, recipient, slippage_bps, timestamp_ms
`

const insertWithdrawalRecordQuery = `
	INSERT INTO withdrawal_records (
		record_id, run_id, seq, kind, token_in, token_out,
		amount_in, amount_out, recipient, slippage_bps, timestamp_ms
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11
	)
`

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *WithdrawalRecordStore) Insert(ctx context.Context, r *domain.WithdrawalRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertWithdrawalRecordQuery,
		r.RecordID, r.RunID, r.Seq, string(r.Kind), r.TokenIn, r.TokenOut,
		r.AmountIn, r.AmountOut, r.Recipient.Hex(), r.SlippageBps, r.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert withdrawal record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *WithdrawalRecordStore) InsertBulk(ctx context.Context, records []*domain.WithdrawalRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if r == nil || r.RecordID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertWithdrawalRecordQuery,
			r.RecordID, r.RunID, r.Seq, string(r.Kind), r.TokenIn, r.TokenOut,
			r.AmountIn, r.AmountOut, r.Recipient.Hex(), r.SlippageBps, r.Timestamp,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert withdrawal record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *WithdrawalRecordStore) GetByID(ctx context.Context, recordID string) (*domain.WithdrawalRecord, error) {
	query := `SELECT ` + withdrawalRecordColumns + ` FROM withdrawal_records WHERE record_id = $1`

	row := s.pool.QueryRow(ctx, query, recordID)
	r, err := scanWithdrawalRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get withdrawal record by id: %w", err)
	}
	return r, nil
}

// GetByRunID retrieves all records for a run, ordered by seq ASC.
func (s *WithdrawalRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.WithdrawalRecord, error) {
	query := `
		SELECT ` + withdrawalRecordColumns + `
		FROM withdrawal_records
		WHERE run_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get withdrawal records by run id: %w", err)
	}
	defer rows.Close()

	return scanWithdrawalRecords(rows)
}

// GetByKind retrieves all records for a run with the given kind, ordered by seq ASC.
func (s *WithdrawalRecordStore) GetByKind(ctx context.Context, runID string, kind domain.WithdrawalKind) ([]*domain.WithdrawalRecord, error) {
	query := `
		SELECT ` + withdrawalRecordColumns + `
		FROM withdrawal_records
		WHERE run_id = $1 AND kind = $2
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("get withdrawal records by kind: %w", err)
	}
	defer rows.Close()

	return scanWithdrawalRecords(rows)
}

// scanWithdrawalRecord scans a single row into a WithdrawalRecord.
func scanWithdrawalRecord(row pgx.Row) (*domain.WithdrawalRecord, error) {
	var (
		r         domain.WithdrawalRecord
		kind      string
		recipient string
	)

	err := row.Scan(
		&r.RecordID, &r.RunID, &r.Seq, &kind, &r.TokenIn, &r.TokenOut,
		&r.AmountIn, &r.AmountOut, &recipient, &r.SlippageBps, &r.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	r.Kind = domain.WithdrawalKind(kind)
	if r.Recipient, err = domain.ParseAddress(recipient); err != nil {
		return nil, fmt.Errorf("parse recipient address: %w", err)
	}
	return &r, nil
}

// scanWithdrawalRecords scans multiple rows into a slice of WithdrawalRecord.
func scanWithdrawalRecords(rows pgx.Rows) ([]*domain.WithdrawalRecord, error) {
	var records []*domain.WithdrawalRecord

	for rows.Next() {
		var (
			r         domain.WithdrawalRecord
			kind      string
			recipient string
		)

		err := rows.Scan(
			&r.RecordID, &r.RunID, &r.Seq, &kind, &r.TokenIn, &r.TokenOut,
			&r.AmountIn, &r.AmountOut, &recipient, &r.SlippageBps, &r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal record row: %w", err)
		}

		r.Kind = domain.WithdrawalKind(kind)
		if r.Recipient, err = domain.ParseAddress(recipient); err != nil {
			return nil, fmt.Errorf("parse recipient address: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawal record rows: %w", err)
	}

	return records, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/storage"
)

// TransferRecordStore implements storage.TransferRecordStore using PostgreSQL.
type TransferRecordStore struct {
	pool *Pool
}

// NewTransferRecordStore creates a new TransferRecordStore.
func NewTransferRecordStore(pool *Pool) *TransferRecordStore {
	return &TransferRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferRecordStore = (*TransferRecordStore)(nil)

const transferRecordColumns = `
	record_id, run_id, seq, class, from_addr, to_addr, contributor,
	amount, net_amount, fee_amount, burn_amount, fee_bps,
	payouts, timestamp_ms
`

const insertTransferRecordQuery = `
	INSERT INTO transfer_records (
		record_id, run_id, seq, class, from_addr, to_addr, contributor,
		amount, net_amount, fee_amount, burn_amount, fee_bps,
		payouts, timestamp_ms
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11, $12,
		$13, $14
	)
`

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *TransferRecordStore) Insert(ctx context.Context, r *domain.TransferRecord) error {
	args, err := transferRecordArgs(r)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, insertTransferRecordQuery, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *TransferRecordStore) InsertBulk(ctx context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		args, err := transferRecordArgs(r)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertTransferRecordQuery, args...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transfer record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransferRecordStore) GetByID(ctx context.Context, recordID string) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferRecordColumns + ` FROM transfer_records WHERE record_id = $1`

	row := s.pool.QueryRow(ctx, query, recordID)
	r, err := scanTransferRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer record by id: %w", err)
	}
	return r, nil
}

// GetByRunID retrieves all records for a run, ordered by seq ASC.
func (s *TransferRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferRecordColumns + `
		FROM transfer_records
		WHERE run_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get transfer records by run id: %w", err)
	}
	defer rows.Close()

	return scanTransferRecords(rows)
}

// GetByClass retrieves all records for a run with the given class, ordered by seq ASC.
func (s *TransferRecordStore) GetByClass(ctx context.Context, runID string, class domain.TransferClass) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferRecordColumns + `
		FROM transfer_records
		WHERE run_id = $1 AND class = $2
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, string(class))
	if err != nil {
		return nil, fmt.Errorf("get transfer records by class: %w", err)
	}
	defer rows.Close()

	return scanTransferRecords(rows)
}

// GetByTimeRange retrieves records for a run within [start, end] (inclusive).
func (s *TransferRecordStore) GetByTimeRange(ctx context.Context, runID string, start, end int64) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferRecordColumns + `
		FROM transfer_records
		WHERE run_id = $1 AND timestamp_ms >= $2 AND timestamp_ms <= $3
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get transfer records by time range: %w", err)
	}
	defer rows.Close()

	return scanTransferRecords(rows)
}

// transferRecordArgs validates a record and flattens it into insert arguments.
func transferRecordArgs(r *domain.TransferRecord) ([]any, error) {
	if r == nil || r.RecordID == "" {
		return nil, storage.ErrInvalidInput
	}

	payouts, err := json.Marshal(r.Payouts)
	if err != nil {
		return nil, fmt.Errorf("marshal payouts: %w", err)
	}

	return []any{
		r.RecordID, r.RunID, r.Seq, string(r.Class), r.From.Hex(), r.To.Hex(), r.Contributor.Hex(),
		r.Amount, r.NetAmount, r.FeeAmount, r.BurnAmount, r.FeeBps,
		payouts, r.Timestamp,
	}, nil
}

// scanTransferRecord scans a single row into a TransferRecord.
func scanTransferRecord(row pgx.Row) (*domain.TransferRecord, error) {
	var (
		r           domain.TransferRecord
		class       string
		from        string
		to          string
		contributor string
		payouts     []byte
	)

	err := row.Scan(
		&r.RecordID, &r.RunID, &r.Seq, &class, &from, &to, &contributor,
		&r.Amount, &r.NetAmount, &r.FeeAmount, &r.BurnAmount, &r.FeeBps,
		&payouts, &r.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if err := fillTransferAddresses(&r, class, from, to, contributor, payouts); err != nil {
		return nil, err
	}
	return &r, nil
}

// scanTransferRecords scans multiple rows into a slice of TransferRecord.
func scanTransferRecords(rows pgx.Rows) ([]*domain.TransferRecord, error) {
	var records []*domain.TransferRecord

	for rows.Next() {
		var (
			r           domain.TransferRecord
			class       string
			from        string
			to          string
			contributor string
			payouts     []byte
		)

		err := rows.Scan(
			&r.RecordID, &r.RunID, &r.Seq, &class, &from, &to, &contributor,
			&r.Amount, &r.NetAmount, &r.FeeAmount, &r.BurnAmount, &r.FeeBps,
			&payouts, &r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer record row: %w", err)
		}

		if err := fillTransferAddresses(&r, class, from, to, contributor, payouts); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer record rows: %w", err)
	}

	return records, nil
}

// fillTransferAddresses decodes the string-encoded columns into domain types.
func fillTransferAddresses(r *domain.TransferRecord, class, from, to, contributor string, payouts []byte) error {
	r.Class = domain.TransferClass(class)

	var err error
	if r.From, err = domain.ParseAddress(from); err != nil {
		return fmt.Errorf("parse from address: %w", err)
	}
	if r.To, err = domain.ParseAddress(to); err != nil {
		return fmt.Errorf("parse to address: %w", err)
	}
	if r.Contributor, err = domain.ParseAddress(contributor); err != nil {
		return fmt.Errorf("parse contributor address: %w", err)
	}

	if len(payouts) > 0 {
		if err := json.Unmarshal(payouts, &r.Payouts); err != nil {
			return fmt.Errorf("unmarshal payouts: %w", err)
		}
	}
	return nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/storage"
)

// TransferRecordStore is an in-memory implementation of storage.TransferRecordStore.
type TransferRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferRecord // keyed by record_id
}

// NewTransferRecordStore creates a new in-memory transfer record store.
func NewTransferRecordStore() *TransferRecordStore {
	return &TransferRecordStore{
		data: make(map[string]*domain.TransferRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *TransferRecordStore) Insert(_ context.Context, r *domain.TransferRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RecordID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RecordID] = copyTransferRecord(r)
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *TransferRecordStore) InsertBulk(_ context.Context, records []*domain.TransferRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.RecordID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.RecordID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.RecordID] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range records {
		s.data[r.RecordID] = copyTransferRecord(r)
	}

	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransferRecordStore) GetByID(_ context.Context, recordID string) (*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[recordID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyTransferRecord(r), nil
}

// GetByRunID retrieves all records for a run, ordered by seq ASC.
func (s *TransferRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.TransferRecord, error) {
	return s.collect(func(r *domain.TransferRecord) bool {
		return r.RunID == runID
	}), nil
}

// GetByClass retrieves all records for a run with the given class, ordered by seq ASC.
func (s *TransferRecordStore) GetByClass(_ context.Context, runID string, class domain.TransferClass) ([]*domain.TransferRecord, error) {
	return s.collect(func(r *domain.TransferRecord) bool {
		return r.RunID == runID && r.Class == class
	}), nil
}

// GetByTimeRange retrieves records for a run within [start, end] (inclusive).
func (s *TransferRecordStore) GetByTimeRange(_ context.Context, runID string, start, end int64) ([]*domain.TransferRecord, error) {
	return s.collect(func(r *domain.TransferRecord) bool {
		return r.RunID == runID && r.Timestamp >= start && r.Timestamp <= end
	}), nil
}

func (s *TransferRecordStore) collect(keep func(*domain.TransferRecord) bool) []*domain.TransferRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, r := range s.data {
		if keep(r) {
			result = append(result, copyTransferRecord(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result
}

// copyTransferRecord deep-copies a record including its payout slice.
func copyTransferRecord(r *domain.TransferRecord) *domain.TransferRecord {
	cp := *r
	if len(r.Payouts) > 0 {
		cp.Payouts = make([]domain.FeePayout, len(r.Payouts))
		copy(cp.Payouts, r.Payouts)
	}
	return &cp
}

var _ storage.TransferRecordStore = (*TransferRecordStore)(nil)

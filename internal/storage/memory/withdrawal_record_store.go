package memory

import (
	"context"
	"sort"
	"sync"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/storage"
)

// WithdrawalRecordStore is an in-memory implementation of storage.WithdrawalRecordStore.
type WithdrawalRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WithdrawalRecord // keyed by record_id
}

// NewWithdrawalRecordStore creates a new in-memory withdrawal record store.
func NewWithdrawalRecordStore() *WithdrawalRecordStore {
	return &WithdrawalRecordStore{
		data: make(map[string]*domain.WithdrawalRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if record_id exists.
func (s *WithdrawalRecordStore) Insert(_ context.Context, r *domain.WithdrawalRecord) error {
	if r == nil || r.RecordID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RecordID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.data[r.RecordID] = &cp
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *WithdrawalRecordStore) InsertBulk(_ context.Context, records []*domain.WithdrawalRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

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

	for _, r := range records {
		cp := *r
		s.data[r.RecordID] = &cp
	}

	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *WithdrawalRecordStore) GetByID(_ context.Context, recordID string) (*domain.WithdrawalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[recordID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *r
	return &cp, nil
}

// GetByRunID retrieves all records for a run, ordered by seq ASC.
func (s *WithdrawalRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.WithdrawalRecord, error) {
	return s.collect(func(r *domain.WithdrawalRecord) bool {
		return r.RunID == runID
	}), nil
}

// GetByKind retrieves all records for a run with the given kind, ordered by seq ASC.
func (s *WithdrawalRecordStore) GetByKind(_ context.Context, runID string, kind domain.WithdrawalKind) ([]*domain.WithdrawalRecord, error) {
	return s.collect(func(r *domain.WithdrawalRecord) bool {
		return r.RunID == runID && r.Kind == kind
	}), nil
}

func (s *WithdrawalRecordStore) collect(keep func(*domain.WithdrawalRecord) bool) []*domain.WithdrawalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WithdrawalRecord
	for _, r := range s.data {
		if keep(r) {
			cp := *r
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result
}

var _ storage.WithdrawalRecordStore = (*WithdrawalRecordStore)(nil)

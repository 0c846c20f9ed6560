package memory

import (
	"context"
	"sort"
	"sync"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/storage"
)

type feeRevenueKey struct {
	runID    string
	bucketMs int64
}

// FeeRevenueStore is an in-memory implementation of storage.FeeRevenueStore.
type FeeRevenueStore struct {
	mu   sync.RWMutex
	data map[feeRevenueKey]*domain.FeeRevenuePoint
}

// NewFeeRevenueStore creates a new in-memory fee revenue store.
func NewFeeRevenueStore() *FeeRevenueStore {
	return &FeeRevenueStore{
		data: make(map[feeRevenueKey]*domain.FeeRevenuePoint),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, bucket_ms).
func (s *FeeRevenueStore) InsertBulk(_ context.Context, points []*domain.FeeRevenuePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[feeRevenueKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := feeRevenueKey{p.RunID, p.BucketMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, p := range points {
		cp := *p
		s.data[feeRevenueKey{p.RunID, p.BucketMs}] = &cp
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by bucket ASC.
func (s *FeeRevenueStore) GetByRunID(_ context.Context, runID string) ([]*domain.FeeRevenuePoint, error) {
	return s.collect(func(p *domain.FeeRevenuePoint) bool {
		return p.RunID == runID
	}), nil
}

// GetByTimeRange retrieves points for a run within [start, end] (inclusive).
func (s *FeeRevenueStore) GetByTimeRange(_ context.Context, runID string, start, end int64) ([]*domain.FeeRevenuePoint, error) {
	return s.collect(func(p *domain.FeeRevenuePoint) bool {
		return p.RunID == runID && p.BucketMs >= start && p.BucketMs <= end
	}), nil
}

func (s *FeeRevenueStore) collect(keep func(*domain.FeeRevenuePoint) bool) []*domain.FeeRevenuePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeeRevenuePoint
	for _, p := range s.data {
		if keep(p) {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].BucketMs < result[j].BucketMs
	})

	return result
}

var _ storage.FeeRevenueStore = (*FeeRevenueStore)(nil)

package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/storage"
)

func testPoint(runID string, bucketMs int64, fees float64) *domain.FeeRevenuePoint {
	return &domain.FeeRevenuePoint{
		RunID:           runID,
		BucketMs:        bucketMs,
		TransferCount:   10,
		Volume:          1000,
		FeesCollected:   fees,
		FeesBurned:      fees * 0.05,
		FeesDistributed: fees * 0.95,
	}
}

func TestFeeRevenueStore_InsertBulkAndGetByRunID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeeRevenueStore(conn)

	points := []*domain.FeeRevenuePoint{
		testPoint("run-1", 3000, 3),
		testPoint("run-1", 1000, 1),
		testPoint("run-1", 2000, 2),
		testPoint("run-2", 1000, 9),
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, p := range got {
		assert.Equal(t, int64(i+1)*1000, p.BucketMs)
		assert.Equal(t, float64(i+1), p.FeesCollected)
	}
}

func TestFeeRevenueStore_DuplicateBucket(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeeRevenueStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.FeeRevenuePoint{testPoint("run-1", 1000, 1)}))

	err := store.InsertBulk(ctx, []*domain.FeeRevenuePoint{testPoint("run-1", 1000, 2)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch duplicate is also rejected.
	err = store.InsertBulk(ctx, []*domain.FeeRevenuePoint{
		testPoint("run-3", 1000, 1),
		testPoint("run-3", 1000, 2),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestFeeRevenueStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeeRevenueStore(conn)

	points := []*domain.FeeRevenuePoint{
		testPoint("run-1", 1000, 1),
		testPoint("run-1", 2000, 2),
		testPoint("run-1", 3000, 3),
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByTimeRange(ctx, "run-1", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].BucketMs)
	assert.Equal(t, int64(3000), got[1].BucketMs)
}

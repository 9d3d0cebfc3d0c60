package progress

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/hr-records-be/shared/logger"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewStore(rdb, 24*time.Hour, logger.NewDefault().Logger), mr
}

func TestInitAndGet(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "job-1", 3))

	rec, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 0, rec.Progress)
	assert.Equal(t, 0, rec.Processed)
	assert.Equal(t, 3, rec.TotalBatches)
	assert.Equal(t, StatusProcessing, rec.Status)
	assert.Empty(t, rec.Error)
	assert.NotEmpty(t, rec.CreatedAt)

	// Record carries the 24-hour expiry
	ttl := mr.TTL("import-progress:job-1")
	assert.Greater(t, ttl, 23*time.Hour)
}

func TestGet_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	rec, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCompleteBatch_Aggregation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "job-1", 3))

	// 120 rows split 50/50/20 -> three batches, completing out of order
	rec, err := store.CompleteBatch(ctx, "job-1", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Processed)
	assert.Equal(t, 33, rec.Progress)
	assert.Equal(t, StatusProcessing, rec.Status)

	rec, err = store.CompleteBatch(ctx, "job-1", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Processed)
	assert.Equal(t, 67, rec.Progress)
	assert.Equal(t, StatusProcessing, rec.Status)

	rec, err = store.CompleteBatch(ctx, "job-1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Processed)
	assert.Equal(t, 100, rec.Progress)
	assert.Equal(t, StatusCompleted, rec.Status)

	stored, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Processed)
	assert.Equal(t, 3, stored.TotalBatches)
	assert.Equal(t, 100, stored.Progress)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestCompleteBatch_IdempotentOnRedelivery(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "job-1", 3))

	for i := 0; i < 3; i++ {
		_, err := store.CompleteBatch(ctx, "job-1", i, 3)
		require.NoError(t, err)
	}

	// Re-delivering an already-completed batch must not overcount
	rec, err := store.CompleteBatch(ctx, "job-1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Processed)
	assert.Equal(t, 100, rec.Progress)
	assert.Equal(t, StatusCompleted, rec.Status)

	rec, err = store.CompleteBatch(ctx, "job-1", 0, 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, rec.Processed, 3)
	assert.LessOrEqual(t, rec.Progress, 100)
}

func TestCompleteBatch_ProgressRounding(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "job-1", 7))

	rec, err := store.CompleteBatch(ctx, "job-1", 0, 7)
	require.NoError(t, err)
	// round(1/7*100) = 14
	assert.Equal(t, 14, rec.Progress)

	_, err = store.CompleteBatch(ctx, "job-1", 1, 7)
	require.NoError(t, err)
	rec, err = store.CompleteBatch(ctx, "job-1", 2, 7)
	require.NoError(t, err)
	// round(3/7*100) = 43
	assert.Equal(t, 43, rec.Progress)
}

func TestFail(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "job-1", 2))
	require.NoError(t, store.Fail(ctx, "job-1", "bulk insert failed"))

	rec, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, rec.Status)
	assert.Equal(t, "bulk insert failed", rec.Error)
}

func TestExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "job-1", 2))
	_, err := store.CompleteBatch(ctx, "job-1", 0, 2)
	require.NoError(t, err)

	mr.FastForward(25 * time.Hour)

	rec, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCompleteBatch_AfterExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "job-1", 3))
	_, err := store.CompleteBatch(ctx, "job-1", 0, 3)
	require.NoError(t, err)

	mr.FastForward(25 * time.Hour)

	// A batch redelivered after the record expired must be dropped, not
	// written into a key that would never expire again
	_, err = store.CompleteBatch(ctx, "job-1", 1, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpired)

	rec, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	assert.False(t, mr.Exists("import-progress:job-1"))
	assert.False(t, mr.Exists("import-progress:job-1:batches"))
}

func TestFail_AfterExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx, "job-1", 2))

	mr.FastForward(25 * time.Hour)

	err := store.Fail(ctx, "job-1", "bulk insert failed")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpired)

	rec, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	assert.False(t, mr.Exists("import-progress:job-1"))
}

func TestFail_UnknownJob(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Fail(context.Background(), "never-initialized", "boom")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpired)
}

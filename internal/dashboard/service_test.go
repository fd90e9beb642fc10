package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	calls atomic.Int64

	stock      int64
	products   int64
	categories int64
	branches   int64
	low        int64
	out        int64
	recent     int64
}

func (f *fakeRepo) TotalStock(context.Context, *int64) (int64, error) {
	f.calls.Add(1)
	return f.stock, nil
}

func (f *fakeRepo) CountProducts(context.Context, *int64) (int64, error) {
	f.calls.Add(1)
	return f.products, nil
}

func (f *fakeRepo) CountCategories(context.Context) (int64, error) {
	f.calls.Add(1)
	return f.categories, nil
}

func (f *fakeRepo) CountBranches(context.Context) (int64, error) {
	f.calls.Add(1)
	return f.branches, nil
}

func (f *fakeRepo) CountByStatus(_ context.Context, _ *int64, status string) (int64, error) {
	f.calls.Add(1)
	if status == "Low Stock" {
		return f.low, nil
	}
	return f.out, nil
}

func (f *fakeRepo) CountRecentActivity(context.Context, time.Time) (int64, error) {
	f.calls.Add(1)
	return f.recent, nil
}

func TestStatsAggregates(t *testing.T) {
	repo := &fakeRepo{stock: 500, products: 42, categories: 7, branches: 3, low: 5, out: 2, recent: 19}
	svc := NewService(repo, nil, 0)

	stats, err := svc.Stats(context.Background(), nil)
	require.NoError(t, err)
	require.EqualValues(t, 500, stats.TotalStock)
	require.EqualValues(t, 42, stats.TotalProducts)
	require.EqualValues(t, 7, stats.TotalCategories)
	require.EqualValues(t, 3, stats.TotalBranches)
	require.EqualValues(t, 5, stats.LowStockCount)
	require.EqualValues(t, 2, stats.OutOfStockCount)
	require.EqualValues(t, 19, stats.RecentActivity)
	require.False(t, stats.LastUpdated.IsZero())
}

func TestStatsCaching(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := &fakeRepo{stock: 100}
	svc := NewService(repo, rdb, time.Minute)

	first, err := svc.Stats(context.Background(), nil)
	require.NoError(t, err)
	callsAfterFirst := repo.calls.Load()
	require.EqualValues(t, 7, callsAfterFirst)

	second, err := svc.Stats(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, first.TotalStock, second.TotalStock)
	require.Equal(t, callsAfterFirst, repo.calls.Load())

	// A different branch scope misses the shared cache.
	branch := int64(2)
	_, err = svc.Stats(context.Background(), &branch)
	require.NoError(t, err)
	require.Greater(t, repo.calls.Load(), callsAfterFirst)

	// Expired entries are recomputed.
	mr.FastForward(2 * time.Minute)
	callsBefore := repo.calls.Load()
	_, err = svc.Stats(context.Background(), nil)
	require.NoError(t, err)
	require.Greater(t, repo.calls.Load(), callsBefore)
}

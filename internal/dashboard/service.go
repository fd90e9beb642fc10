package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Stats is the dashboard summary payload.
type Stats struct {
	TotalStock      int64     `json:"totalStock"`
	TotalProducts   int64     `json:"totalProducts"`
	TotalCategories int64     `json:"totalCategories"`
	TotalBranches   int64     `json:"totalBranches"`
	LowStockCount   int64     `json:"lowStockCount"`
	OutOfStockCount int64     `json:"outOfStockCount"`
	RecentActivity  int64     `json:"recentActivity"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// Repository provides the individual counts the dashboard aggregates.
type Repository interface {
	TotalStock(ctx context.Context, branchID *int64) (int64, error)
	CountProducts(ctx context.Context, branchID *int64) (int64, error)
	CountCategories(ctx context.Context) (int64, error)
	CountBranches(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, branchID *int64, status string) (int64, error)
	CountRecentActivity(ctx context.Context, since time.Time) (int64, error)
}

// Service aggregates dashboard statistics, caching results in redis for the
// configured lifetime.
type Service struct {
	repo     Repository
	redis    *redis.Client
	cacheTTL time.Duration
}

// NewService constructs the service. ttl controls how long computed stats
// are served from cache; zero disables caching.
func NewService(repo Repository, rdb *redis.Client, ttl time.Duration) *Service {
	return &Service{repo: repo, redis: rdb, cacheTTL: ttl}
}

func cacheKey(branchID *int64) string {
	if branchID == nil {
		return "dashboard:stats:all"
	}
	return fmt.Sprintf("dashboard:stats:branch:%d", *branchID)
}

// Stats returns the aggregate view, scoped to one branch when branchID is
// set.
func (s *Service) Stats(ctx context.Context, branchID *int64) (*Stats, error) {
	if cached := s.fromCache(ctx, branchID); cached != nil {
		return cached, nil
	}

	stats := &Stats{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.TotalStock, err = s.repo.TotalStock(gctx, branchID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalProducts, err = s.repo.CountProducts(gctx, branchID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalCategories, err = s.repo.CountCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalBranches, err = s.repo.CountBranches(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.LowStockCount, err = s.repo.CountByStatus(gctx, branchID, "Low Stock")
		return err
	})
	g.Go(func() error {
		var err error
		stats.OutOfStockCount, err = s.repo.CountByStatus(gctx, branchID, "Out of Stock")
		return err
	})
	g.Go(func() error {
		var err error
		stats.RecentActivity, err = s.repo.CountRecentActivity(gctx, time.Now().AddDate(0, 0, -7))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.LastUpdated = time.Now().UTC()

	s.toCache(ctx, branchID, stats)
	return stats, nil
}

func (s *Service) fromCache(ctx context.Context, branchID *int64) *Stats {
	if s.redis == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.redis.Get(ctx, cacheKey(branchID)).Bytes()
	if err != nil {
		return nil
	}
	var stats Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *Service) toCache(ctx context.Context, branchID *int64, stats *Stats) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = s.redis.Set(ctx, cacheKey(branchID), raw, s.cacheTTL).Err()
}

package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository is the Postgres-backed implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) TotalStock(ctx context.Context, branchID *int64) (int64, error) {
	return r.count(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM centralized_products`, branchID)
}

func (r *PGRepository) CountProducts(ctx context.Context, branchID *int64) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM centralized_products`, branchID)
}

func (r *PGRepository) CountCategories(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM categories`, nil)
}

func (r *PGRepository) CountBranches(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM branches`, nil)
}

func (r *PGRepository) CountByStatus(ctx context.Context, branchID *int64, status string) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM centralized_products WHERE status = $1`
	args := []any{status}
	if branchID != nil {
		query += ` AND branch_id = $2`
		args = append(args, *branchID)
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return n, nil
}

func (r *PGRepository) CountRecentActivity(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE occurred_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recent activity: %w", err)
	}
	return n, nil
}

func (r *PGRepository) count(ctx context.Context, query string, branchID *int64) (int64, error) {
	var n int64
	args := []any{}
	if branchID != nil {
		query += ` WHERE branch_id = $1`
		args = append(args, *branchID)
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("dashboard count: %w", err)
	}
	return n, nil
}

var _ Repository = (*PGRepository)(nil)

package categories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-ims/lumina/internal/shared"
)

// ErrNameTaken indicates the normalized category name already exists.
var ErrNameTaken = errors.New("category already exists")

// Repository abstracts category persistence.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id int64) (*Category, error)
	Create(ctx context.Context, name string) (*Category, error)
	Update(ctx context.Context, id int64, name string) (*Category, error)
	Delete(ctx context.Context, id int64) error
	CountProducts(ctx context.Context, id int64) (int64, error)
}

// PGRepository is the Postgres-backed implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_name, created_at, updated_at FROM categories ORDER BY category_name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, category_name, created_at, updated_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *PGRepository) Create(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `
		INSERT INTO categories (category_name)
		VALUES ($1)
		RETURNING id, category_name, created_at, updated_at`, name).
		Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &c, nil
}

func (r *PGRepository) Update(ctx context.Context, id int64, name string) (*Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `
		UPDATE categories SET category_name = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, category_name, created_at, updated_at`, id, name).
		Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &c, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) CountProducts(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM centralized_products WHERE category_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category products: %w", err)
	}
	return n, nil
}

var _ Repository = (*PGRepository)(nil)

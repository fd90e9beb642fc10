package branches

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-ims/lumina/internal/shared"
)

// Repository abstracts branch persistence.
type Repository interface {
	List(ctx context.Context) ([]Branch, error)
	GetByID(ctx context.Context, id int64) (*Branch, error)
	Create(ctx context.Context, in BranchInput) (*Branch, error)
	Update(ctx context.Context, id int64, in BranchInput) (*Branch, error)
	Delete(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, branchID int64) ([]BranchProduct, error)
}

const branchColumns = `id, branch_name, location, latitude, longitude, created_at, updated_at`

// PGRepository is the Postgres-backed implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) List(ctx context.Context) ([]Branch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+branchColumns+` FROM branches ORDER BY branch_name`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var out []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Branch, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE id = $1`, id)
	b, err := scanBranch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return b, nil
}

func (r *PGRepository) Create(ctx context.Context, in BranchInput) (*Branch, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO branches (branch_name, location, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		RETURNING `+branchColumns,
		in.Name, in.Location, in.Latitude, in.Longitude)
	b, err := scanBranch(row)
	if err != nil {
		return nil, fmt.Errorf("create branch: %w", err)
	}
	return b, nil
}

func (r *PGRepository) Update(ctx context.Context, id int64, in BranchInput) (*Branch, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE branches
		SET branch_name = $2, location = $3, latitude = $4, longitude = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+branchColumns,
		id, in.Name, in.Location, in.Latitude, in.Longitude)
	b, err := scanBranch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("update branch: %w", err)
	}
	return b, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) ListProducts(ctx context.Context, branchID int64) ([]BranchProduct, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.product_name, c.category_name, p.price,
		       p.quantity, p.reserved_quantity,
		       p.quantity - p.reserved_quantity AS available_quantity,
		       p.status
		FROM centralized_products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.branch_id = $1
		ORDER BY p.product_name`, branchID)
	if err != nil {
		return nil, fmt.Errorf("list branch products: %w", err)
	}
	defer rows.Close()

	var out []BranchProduct
	for rows.Next() {
		var p BranchProduct
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.CategoryName, &p.Price,
			&p.Quantity, &p.Reserved, &p.Available, &p.Status); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanBranch(row pgx.Row) (*Branch, error) {
	var b Branch
	if err := row.Scan(&b.ID, &b.Name, &b.Location, &b.Latitude, &b.Longitude,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

var _ Repository = (*PGRepository)(nil)

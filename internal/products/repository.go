package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-ims/lumina/internal/platform/db"
	"github.com/lumina-ims/lumina/internal/shared"
)

// Closed requisition statuses whose item rows are pruned with the product.
const (
	requisitionStatusDenied  = "denied"
	requisitionStatusArrived = "arrived"
)

// Repository abstracts product persistence.
type Repository interface {
	List(ctx context.Context, branchID *int64) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, in ProductInput, status string) (*Product, error)
	Update(ctx context.Context, id int64, in ProductInput, status string) (*Product, error)
	Delete(ctx context.Context, id int64) error
	CountOpenRequisitionItems(ctx context.Context, productID int64) (int64, error)
	FindByNameAndBranch(ctx context.Context, name string, branchID int64) (*Product, error)
	ResolveCategory(ctx context.Context, name string) (int64, error)
}

const productColumns = `
	p.id, p.product_name, p.category_id, c.category_name, p.branch_id, b.branch_name,
	p.price, p.quantity, p.reserved_quantity, p.status, p.created_at, p.updated_at`

const productFrom = `
	FROM centralized_products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN branches b ON b.id = p.branch_id`

// PGRepository is the Postgres-backed implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) List(ctx context.Context, branchID *int64) ([]Product, error) {
	query := `SELECT ` + productColumns + productFrom
	args := []any{}
	if branchID != nil {
		query += ` WHERE p.branch_id = $1`
		args = append(args, *branchID)
	}
	query += ` ORDER BY p.product_name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *PGRepository) Create(ctx context.Context, in ProductInput, status string) (*Product, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO centralized_products (product_name, category_id, branch_id, price, quantity, reserved_quantity, status)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING id`,
		in.Name, in.CategoryID, in.BranchID, in.Price, in.Quantity, status).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PGRepository) Update(ctx context.Context, id int64, in ProductInput, status string) (*Product, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE centralized_products
		SET product_name = $2, category_id = $3, branch_id = $4, price = $5,
		    quantity = $6, status = $7, updated_at = now()
		WHERE id = $1`,
		id, in.Name, in.CategoryID, in.BranchID, in.Price, in.Quantity, status)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes the product together with its item rows from closed
// requisitions, matching how stock was cleaned up before the ledger existed.
// Transfer ledger rows stay; a product that was ever transferred cannot be
// deleted.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM product_requisition_items i
			USING product_requisitions pr
			WHERE pr.request_id = i.request_id
			  AND i.product_id = $1
			  AND pr.status IN ($2, $3)`,
			id, requisitionStatusDenied, requisitionStatusArrived)
		if err != nil {
			return fmt.Errorf("prune requisition history: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM centralized_products WHERE id = $1`, id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return ErrHasTransferHistory
			}
			return fmt.Errorf("delete product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *PGRepository) CountOpenRequisitionItems(ctx context.Context, productID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM product_requisition_items i
		JOIN product_requisitions pr ON pr.request_id = i.request_id
		WHERE i.product_id = $1 AND pr.status IN ('pending', 'approved')`, productID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open requisition items: %w", err)
	}
	return n, nil
}

func (r *PGRepository) FindByNameAndBranch(ctx context.Context, name string, branchID int64) (*Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+productFrom+` WHERE p.product_name = $1 AND p.branch_id = $2`,
		name, branchID)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find product by name: %w", err)
	}
	return p, nil
}

// ResolveCategory finds or creates a category row by name.
func (r *PGRepository) ResolveCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO categories (category_name)
		VALUES ($1)
		ON CONFLICT (category_name) DO UPDATE SET updated_at = now()
		RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve category: %w", err)
	}
	return id, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(
		&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.BranchID, &p.BranchName,
		&p.Price, &p.Quantity, &p.Reserved, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ Repository = (*PGRepository)(nil)

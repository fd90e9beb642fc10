package transfers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the transfer ledger. Writes happen inside the
// requisition approval transaction.
type Repository interface {
	ListForBranch(ctx context.Context, branchID int64) ([]BranchTransfer, error)
}

// PGRepository is the Postgres-backed implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListForBranch returns transfers where the branch is source or
// destination, newest first.
func (r *PGRepository) ListForBranch(ctx context.Context, branchID int64) ([]BranchTransfer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.request_id, t.product_id, t.quantity,
		       t.source_branch_id, t.dest_branch_id, t.status, t.transferred_at,
		       p.product_name, c.category_name, p.price,
		       sb.branch_name, db.branch_name,
		       t.quantity * p.price AS total_value
		FROM inventory_transfers t
		JOIN centralized_products p ON p.id = t.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		JOIN branches sb ON sb.id = t.source_branch_id
		JOIN branches db ON db.id = t.dest_branch_id
		WHERE t.source_branch_id = $1 OR t.dest_branch_id = $1
		ORDER BY t.transferred_at DESC`, branchID)
	if err != nil {
		return nil, fmt.Errorf("list branch transfers: %w", err)
	}
	defer rows.Close()

	var out []BranchTransfer
	for rows.Next() {
		var t BranchTransfer
		if err := rows.Scan(
			&t.ID, &t.RequestID, &t.ProductID, &t.Quantity,
			&t.SourceBranchID, &t.DestBranchID, &t.Status, &t.TransferredAt,
			&t.ProductName, &t.CategoryName, &t.Price,
			&t.SourceBranchName, &t.DestBranchName,
			&t.TotalValue,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)

package requisition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-ims/lumina/internal/platform/db"
	"github.com/lumina-ims/lumina/internal/shared"
	"github.com/lumina-ims/lumina/internal/transfers"
	"github.com/lumina-ims/lumina/internal/users"
)

// TxRepository is the slice of persistence the transfer logic runs inside a
// single transaction.
type TxRepository interface {
	InsertRequisition(ctx context.Context, requestID, from, to, notes string) error
	InsertItems(ctx context.Context, requestID string, items []ItemInput) error
	GetStockForUpdate(ctx context.Context, productID int64) (*StockRow, error)
	Reserve(ctx context.Context, productID, qty int64) error
	Release(ctx context.Context, productID, qty int64) error
	Deduct(ctx context.Context, productID, qty int64, status string) error
	UpsertDestination(ctx context.Context, src StockRow, destBranchID, qty int64, status string) (int64, error)
	UpdateStatus(ctx context.Context, requestID, status, reviewedBy string) error
	MarkArrived(ctx context.Context, requestID string) error
	InsertTransfer(ctx context.Context, requestID string, productID, qty, sourceBranchID, destBranchID int64) error
	CompleteTransfers(ctx context.Context, requestID string) error
}

// Repository abstracts requisition persistence.
type Repository interface {
	InTx(ctx context.Context, fn func(TxRepository) error) error
	GetByID(ctx context.Context, requestID string) (*Requisition, error)
	ListIncoming(ctx context.Context, userID string) ([]Requisition, error)
	ListSent(ctx context.Context, userID string) ([]Requisition, error)
	ListAll(ctx context.Context) ([]Requisition, error)
	ListStalePending(ctx context.Context, cutoff time.Time) ([]Requisition, error)
	FindBranchManager(ctx context.Context, branchID int64) (string, error)
	GetUserBranch(ctx context.Context, userID string) (int64, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const requisitionColumns = `
	pr.request_id, pr.request_from, pr.request_to,
	uf.name, ut.name,
	uf.branch_id, bf.branch_name, ut.branch_id, bt.branch_name,
	pr.status, COALESCE(pr.notes, ''), pr.reviewed_by, pr.reviewed_at, pr.arrived_at,
	pr.created_at, pr.updated_at`

const requisitionFrom = `
	FROM product_requisitions pr
	JOIN users uf ON uf.user_id = pr.request_from
	JOIN users ut ON ut.user_id = pr.request_to
	LEFT JOIN branches bf ON bf.id = uf.branch_id
	LEFT JOIN branches bt ON bt.id = ut.branch_id`

// PGRepository is the Postgres-backed implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) InTx(ctx context.Context, fn func(TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepo{q: tx})
	})
}

func (r *PGRepository) GetByID(ctx context.Context, requestID string) (*Requisition, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+requisitionColumns+requisitionFrom+` WHERE pr.request_id = $1`, requestID)
	req, err := scanRequisition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get requisition: %w", err)
	}
	items, err := r.listItems(ctx, requestID)
	if err != nil {
		return nil, err
	}
	req.Items = items
	return req, nil
}

func (r *PGRepository) ListIncoming(ctx context.Context, userID string) ([]Requisition, error) {
	return r.list(ctx,
		` WHERE pr.request_to = $1 AND pr.status = 'pending' ORDER BY pr.created_at DESC`, userID)
}

func (r *PGRepository) ListSent(ctx context.Context, userID string) ([]Requisition, error) {
	return r.list(ctx,
		` WHERE pr.request_from = $1 ORDER BY pr.created_at DESC`, userID)
}

func (r *PGRepository) ListAll(ctx context.Context) ([]Requisition, error) {
	return r.list(ctx, ` ORDER BY pr.created_at DESC`)
}

func (r *PGRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]Requisition, error) {
	return r.list(ctx,
		` WHERE pr.status = 'pending' AND pr.created_at < $1 ORDER BY pr.created_at`, cutoff)
}

func (r *PGRepository) list(ctx context.Context, tail string, args ...any) ([]Requisition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requisitionColumns+requisitionFrom+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list requisitions: %w", err)
	}
	defer rows.Close()

	var out []Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.listItems(ctx, out[i].RequestID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *PGRepository) listItems(ctx context.Context, requestID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.product_id, p.product_name, c.category_name, p.price, i.quantity
		FROM product_requisition_items i
		JOIN centralized_products p ON p.id = i.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE i.request_id = $1
		ORDER BY p.product_name`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list requisition items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.CategoryName, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// FindBranchManager resolves the active Branch Manager for a branch.
func (r *PGRepository) FindBranchManager(ctx context.Context, branchID int64) (string, error) {
	var userID string
	err := r.pool.QueryRow(ctx, `
		SELECT user_id FROM users
		WHERE branch_id = $1 AND role_id = $2 AND status = 'Active'
		ORDER BY created_at
		LIMIT 1`, branchID, users.RoleBranchManager).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoBranchManager
		}
		return "", fmt.Errorf("find branch manager: %w", err)
	}
	return userID, nil
}

func (r *PGRepository) GetUserBranch(ctx context.Context, userID string) (int64, error) {
	var branchID *int64
	err := r.pool.QueryRow(ctx,
		`SELECT branch_id FROM users WHERE user_id = $1`, userID).Scan(&branchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("get user branch: %w", err)
	}
	if branchID == nil {
		return 0, shared.ErrNotFound
	}
	return *branchID, nil
}

func scanRequisition(row pgx.Row) (*Requisition, error) {
	var req Requisition
	var requesterBranchID, targetBranchID *int64
	var requesterBranch, targetBranch *string
	if err := row.Scan(
		&req.RequestID, &req.RequestFrom, &req.RequestTo,
		&req.RequesterName, &req.RecipientName,
		&requesterBranchID, &requesterBranch, &targetBranchID, &targetBranch,
		&req.Status, &req.Notes, &req.ReviewedBy, &req.ReviewedAt, &req.ArrivedAt,
		&req.CreatedAt, &req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if requesterBranchID != nil {
		req.RequesterBranchID = *requesterBranchID
	}
	if requesterBranch != nil {
		req.RequesterBranch = *requesterBranch
	}
	if targetBranchID != nil {
		req.TargetBranchID = *targetBranchID
	}
	if targetBranch != nil {
		req.TargetBranch = *targetBranch
	}
	return &req, nil
}

type txRepo struct {
	q querier
}

func (t *txRepo) InsertRequisition(ctx context.Context, requestID, from, to, notes string) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO product_requisitions (request_id, request_from, request_to, status, notes)
		VALUES ($1, $2, $3, 'pending', NULLIF($4, ''))`,
		requestID, from, to, notes)
	if err != nil {
		return fmt.Errorf("insert requisition: %w", err)
	}
	return nil
}

func (t *txRepo) InsertItems(ctx context.Context, requestID string, items []ItemInput) error {
	for _, it := range items {
		_, err := t.q.Exec(ctx, `
			INSERT INTO product_requisition_items (request_id, product_id, quantity)
			VALUES ($1, $2, $3)`, requestID, it.ProductID, it.Quantity)
		if err != nil {
			return fmt.Errorf("insert requisition item: %w", err)
		}
	}
	return nil
}

func (t *txRepo) GetStockForUpdate(ctx context.Context, productID int64) (*StockRow, error) {
	var s StockRow
	err := t.q.QueryRow(ctx, `
		SELECT id, product_name, category_id, branch_id, price, quantity, reserved_quantity
		FROM centralized_products
		WHERE id = $1
		FOR UPDATE`, productID).
		Scan(&s.ProductID, &s.ProductName, &s.CategoryID, &s.BranchID, &s.Price, &s.Quantity, &s.Reserved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("lock product row: %w", err)
	}
	return &s, nil
}

func (t *txRepo) Reserve(ctx context.Context, productID, qty int64) error {
	_, err := t.q.Exec(ctx, `
		UPDATE centralized_products
		SET reserved_quantity = reserved_quantity + $2, updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	return nil
}

func (t *txRepo) Release(ctx context.Context, productID, qty int64) error {
	_, err := t.q.Exec(ctx, `
		UPDATE centralized_products
		SET reserved_quantity = GREATEST(reserved_quantity - $2, 0), updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}

func (t *txRepo) Deduct(ctx context.Context, productID, qty int64, status string) error {
	_, err := t.q.Exec(ctx, `
		UPDATE centralized_products
		SET quantity = quantity - $2,
		    reserved_quantity = GREATEST(reserved_quantity - $2, 0),
		    status = $3,
		    updated_at = now()
		WHERE id = $1`, productID, qty, status)
	if err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}
	return nil
}

func (t *txRepo) UpsertDestination(ctx context.Context, src StockRow, destBranchID, qty int64, status string) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO centralized_products (product_name, category_id, branch_id, price, quantity, reserved_quantity, status)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		ON CONFLICT (product_name, branch_id) DO UPDATE
		SET quantity = centralized_products.quantity + EXCLUDED.quantity,
		    price = EXCLUDED.price,
		    status = CASE
		        WHEN centralized_products.quantity + EXCLUDED.quantity <= 0 THEN 'Out of Stock'
		        WHEN centralized_products.quantity + EXCLUDED.quantity < 20 THEN 'Low Stock'
		        ELSE 'In Stock'
		    END,
		    updated_at = now()
		RETURNING id`,
		src.ProductName, src.CategoryID, destBranchID, src.Price, qty, status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert destination product: %w", err)
	}
	return id, nil
}

// UpdateStatus only moves a request out of pending. A zero-row update means
// another reviewer got there first; the caller's transaction rolls back.
func (t *txRepo) UpdateStatus(ctx context.Context, requestID, status, reviewedBy string) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE product_requisitions
		SET status = $2, reviewed_by = NULLIF($3, ''), reviewed_at = now(), updated_at = now()
		WHERE request_id = $1 AND status = $4`, requestID, status, reviewedBy, StatusPending)
	if err != nil {
		return fmt.Errorf("update requisition status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (t *txRepo) MarkArrived(ctx context.Context, requestID string) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE product_requisitions
		SET status = $2, arrived_at = now(), updated_at = now()
		WHERE request_id = $1 AND status = $3`, requestID, StatusArrived, StatusApproved)
	if err != nil {
		return fmt.Errorf("mark requisition arrived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (t *txRepo) InsertTransfer(ctx context.Context, requestID string, productID, qty, sourceBranchID, destBranchID int64) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO inventory_transfers (request_id, product_id, quantity, source_branch_id, dest_branch_id, status, transferred_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		requestID, productID, qty, sourceBranchID, destBranchID, transfers.StatusInTransit)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (t *txRepo) CompleteTransfers(ctx context.Context, requestID string) error {
	_, err := t.q.Exec(ctx, `
		UPDATE inventory_transfers SET status = $2 WHERE request_id = $1`,
		requestID, transfers.StatusCompleted)
	if err != nil {
		return fmt.Errorf("complete transfers: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
var _ TxRepository = (*txRepo)(nil)

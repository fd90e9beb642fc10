package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-ims/lumina/internal/products"
	"github.com/lumina-ims/lumina/internal/users"
)

// LowStockItem is a product that fell below the restock threshold.
type LowStockItem struct {
	ProductID int64
	Name      string
	Quantity  int64
	Status    string
}

// StockReporter reads per-branch stock levels for the scan.
type StockReporter interface {
	BranchIDs(ctx context.Context) ([]int64, error)
	LowStockItems(ctx context.Context, branchID int64) ([]LowStockItem, error)
	BranchManager(ctx context.Context, branchID int64) (string, error)
}

// Notifier delivers the alert to the branch manager.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message, link, typ string) error
}

// LowStockScanJob notifies branch managers when products run low.
type LowStockScanJob struct {
	Reporter StockReporter
	Notifier Notifier
	Logger   *slog.Logger
}

// NewLowStockScanJob initialises the low stock scan handler.
func NewLowStockScanJob(reporter StockReporter, notifier Notifier, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Reporter: reporter, Notifier: notifier, Logger: logger}
}

// Handle executes the scan for the branch named in the payload, or for every
// branch when the payload names none.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reporter == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload StockLowScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	branches := []int64{payload.BranchID}
	if payload.BranchID == 0 {
		all, err := j.Reporter.BranchIDs(ctx)
		if err != nil {
			return fmt.Errorf("list branches: %w", err)
		}
		branches = all
	}

	for _, branchID := range branches {
		if err := j.scanBranch(ctx, branchID); err != nil {
			return err
		}
	}
	return nil
}

func (j *LowStockScanJob) scanBranch(ctx context.Context, branchID int64) error {
	items, err := j.Reporter.LowStockItems(ctx, branchID)
	if err != nil {
		return fmt.Errorf("scan branch %d: %w", branchID, err)
	}
	if len(items) == 0 {
		return nil
	}

	managerID, err := j.Reporter.BranchManager(ctx, branchID)
	if err != nil {
		return fmt.Errorf("find manager for branch %d: %w", branchID, err)
	}
	if managerID == "" {
		j.log().Warn("low stock scan: branch has no manager",
			slog.Int64("branch_id", branchID),
			slog.Int("items", len(items)))
		return nil
	}

	out := 0
	for _, it := range items {
		if it.Status == products.StatusOutOfStock || it.Quantity == 0 {
			out++
		}
	}
	message := fmt.Sprintf("%d product(s) in your branch are running low", len(items))
	if out > 0 {
		message = fmt.Sprintf("%d product(s) in your branch are running low, %d out of stock", len(items), out)
	}
	if err := j.Notifier.Notify(ctx, managerID, "Low Stock Alert", message, "/inventory", "warning"); err != nil {
		return fmt.Errorf("notify manager for branch %d: %w", branchID, err)
	}
	j.log().Info("low stock scan complete",
		slog.Int64("branch_id", branchID),
		slog.Int("low", len(items)),
		slog.Int("out", out))
	return nil
}

func (j *LowStockScanJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// PGStockReporter reads stock levels straight from Postgres.
type PGStockReporter struct {
	pool *pgxpool.Pool
}

// NewPGStockReporter constructs a Postgres-backed StockReporter.
func NewPGStockReporter(pool *pgxpool.Pool) *PGStockReporter {
	return &PGStockReporter{pool: pool}
}

var _ StockReporter = (*PGStockReporter)(nil)

func (r *PGStockReporter) BranchIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM branches ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PGStockReporter) LowStockItems(ctx context.Context, branchID int64) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_name, quantity, status
		FROM centralized_products
		WHERE branch_id = $1 AND status IN ($2, $3)
		ORDER BY quantity ASC`,
		branchID, products.StatusLowStock, products.StatusOutOfStock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LowStockItem
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.Status); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGStockReporter) BranchManager(ctx context.Context, branchID int64) (string, error) {
	var userID string
	err := r.pool.QueryRow(ctx, `
		SELECT user_id FROM users
		WHERE branch_id = $1 AND role_id = $2 AND status = 'Active'
		ORDER BY created_at ASC
		LIMIT 1`,
		branchID, users.RoleBranchManager).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return userID, nil
}

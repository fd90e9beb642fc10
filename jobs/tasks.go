package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskStockLowScan inspects a branch for low or depleted stock and
	// notifies its branch manager.
	TaskStockLowScan = "stock:lowscan"
	// TaskRequisitionStaleSweep denies pending requisitions that were never
	// reviewed, releasing their reservations.
	TaskRequisitionStaleSweep = "requisition:stale"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency"
)

// StockLowScanPayload identifies the branch to scan. A zero BranchID scans
// every branch.
type StockLowScanPayload struct {
	BranchID int64 `json:"branch_id"`
}

// NewStockLowScanTask constructs an Asynq task for a low stock scan.
func NewStockLowScanTask(branchID int64) (*asynq.Task, error) {
	body, err := json.Marshal(StockLowScanPayload{BranchID: branchID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockLowScan, body, asynq.Queue(QueueDefault)), nil
}

// RequisitionStaleSweepPayload carries the age threshold for the sweep.
type RequisitionStaleSweepPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewRequisitionStaleSweepTask constructs an Asynq task for the stale sweep.
func NewRequisitionStaleSweepTask(maxAge time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(RequisitionStaleSweepPayload{MaxAge: maxAge})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRequisitionStaleSweep, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload carries the retention window for stored keys.
type IdempotencyCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for key cleanup.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

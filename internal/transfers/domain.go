package transfers

import "time"

// Ledger row statuses. Rows are written In Transit when a request is
// approved and completed when the stock is marked arrived.
const (
	StatusInTransit = "In Transit"
	StatusCompleted = "Completed"
)

// Transfer is one ledger row in inventory_transfers.
type Transfer struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"request_id"`
	ProductID      int64     `json:"product_id"`
	Quantity       int64     `json:"quantity"`
	SourceBranchID int64     `json:"source_branch_id"`
	DestBranchID   int64     `json:"dest_branch_id"`
	Status         string    `json:"status"`
	TransferredAt  time.Time `json:"transferred_at"`
}

// BranchTransfer is a ledger row enriched for the branch history view.
type BranchTransfer struct {
	Transfer
	ProductName      string  `json:"product_name"`
	CategoryName     *string `json:"category_name"`
	Price            float64 `json:"price"`
	SourceBranchName string  `json:"source_branch_name"`
	DestBranchName   string  `json:"dest_branch_name"`
	TotalValue       float64 `json:"total_value"`
}

package requisition

import (
	"errors"
	"fmt"
	"time"
)

// Requisition lifecycle statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
	StatusArrived  = "arrived"
)

// ErrEmptyItems rejects requests without items or with non-positive
// quantities.
var ErrEmptyItems = errors.New("items are required and cannot be empty")

// ErrSelfRequest rejects requests targeting the requester's own branch.
var ErrSelfRequest = errors.New("cannot request stock from your own branch")

// ErrNoBranchManager is returned when the target branch has no active
// Branch Manager to receive the request.
var ErrNoBranchManager = errors.New("target branch has no active branch manager")

// ErrInvalidState is returned when a transition is attempted from the wrong
// status.
var ErrInvalidState = errors.New("request is not in a state that allows this action")

// ErrInsufficientStock is raised inside the reservation transaction when a
// line cannot be covered by the available quantity.
type ErrInsufficientStock struct {
	ProductID   int64
	ProductName string
	Requested   int64
	Available   int64
}

func (e ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// Requisition is a stock request between branches. request_from and
// request_to are user IDs; the branch pair is resolved from them.
type Requisition struct {
	RequestID         string     `json:"request_id"`
	RequestFrom       string     `json:"request_from"`
	RequestTo         string     `json:"request_to"`
	RequesterName     string     `json:"requester_name,omitempty"`
	RecipientName     string     `json:"recipient_name,omitempty"`
	RequesterBranchID int64      `json:"requester_branch_id"`
	RequesterBranch   string     `json:"requester_branch,omitempty"`
	TargetBranchID    int64      `json:"target_branch_id"`
	TargetBranch      string     `json:"target_branch,omitempty"`
	Status            string     `json:"status"`
	Notes             string     `json:"notes,omitempty"`
	ReviewedBy        *string    `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	ArrivedAt         *time.Time `json:"arrived_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Items             []Item     `json:"items,omitempty"`
}

// Item is one requested product line.
type Item struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name,omitempty"`
	CategoryName *string `json:"category_name,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Quantity     int64   `json:"quantity"`
}

// CreateInput carries the fields for a new request.
type CreateInput struct {
	RequesterID    string
	TargetBranchID int64
	Notes          string
	Items          []ItemInput
}

// ItemInput is one requested line in a create payload.
type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// StockRow is the slice of a product row the transfer logic needs.
type StockRow struct {
	ProductID   int64
	ProductName string
	CategoryID  *int64
	BranchID    int64
	Price       float64
	Quantity    int64
	Reserved    int64
}

// Available reports the unreserved quantity.
func (s StockRow) Available() int64 {
	if s.Reserved > s.Quantity {
		return 0
	}
	return s.Quantity - s.Reserved
}

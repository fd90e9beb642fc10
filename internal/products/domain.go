package products

import "time"

// Stock status labels derived from quantity on every write.
const (
	StatusOutOfStock = "Out of Stock"
	StatusLowStock   = "Low Stock"
	StatusInStock    = "In Stock"
)

// Quantities below this threshold are flagged low.
const lowStockThreshold = 20

// DeriveStatus maps a quantity to its stock label. Clients never set the
// status themselves.
func DeriveStatus(quantity int64) string {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity < lowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Product is a stocked item at one branch.
type Product struct {
	ID           int64     `json:"id"`
	Name         string    `json:"product_name"`
	CategoryID   *int64    `json:"category_id"`
	CategoryName *string   `json:"category_name"`
	BranchID     int64     `json:"branch_id"`
	BranchName   *string   `json:"branch_name"`
	Price        float64   `json:"price"`
	Quantity     int64     `json:"quantity"`
	Reserved     int64     `json:"reserved_quantity"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Available reports the unreserved quantity.
func (p Product) Available() int64 {
	if p.Reserved > p.Quantity {
		return 0
	}
	return p.Quantity - p.Reserved
}

// ProductInput carries create/update fields.
type ProductInput struct {
	Name       string
	CategoryID *int64
	BranchID   int64
	Price      float64
	Quantity   int64
}

// ImportRow is one line of a bulk import payload.
type ImportRow struct {
	Name         string  `json:"product_name"`
	CategoryName string  `json:"category_name"`
	Price        float64 `json:"price"`
	Quantity     int64   `json:"quantity"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

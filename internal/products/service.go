package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lumina-ims/lumina/internal/categories"
	"github.com/lumina-ims/lumina/internal/shared"
)

// ErrNameRequired is returned for blank product names.
var ErrNameRequired = errors.New("product name is required")

// ErrNegativeValues is returned when price or quantity is negative.
var ErrNegativeValues = errors.New("price and quantity must not be negative")

// ErrHasOpenRequests guards deletion while requisitions reference the product.
type ErrHasOpenRequests struct {
	Count int64
}

func (e ErrHasOpenRequests) Error() string {
	return fmt.Sprintf("product has %d open requisition item(s)", e.Count)
}

// ErrHasTransferHistory guards deletion while the transfer ledger references
// the product. Ledger rows are never deleted.
var ErrHasTransferHistory = errors.New("product has transfer history and cannot be deleted")

// StockScanner enqueues a low stock scan after inventory mutations. The
// background worker owns the actual scan.
type StockScanner interface {
	EnqueueLowStockScan(ctx context.Context, branchID int64) error
}

// Service wraps product business rules.
type Service struct {
	repo    Repository
	audit   *shared.AuditLogger
	scanner StockScanner
}

func NewService(repo Repository, audit *shared.AuditLogger, scanner StockScanner) *Service {
	return &Service{repo: repo, audit: audit, scanner: scanner}
}

func (s *Service) List(ctx context.Context, branchID *int64) ([]Product, error) {
	return s.repo.List(ctx, branchID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func validateInput(in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Price < 0 || in.Quantity < 0 {
		return ErrNegativeValues
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actorID string, in ProductInput) (*Product, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	p, err := s.repo.Create(ctx, in, DeriveStatus(in.Quantity))
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionProductCreated,
			Description: fmt.Sprintf("Created product %s", p.Name),
			EntityType:  "product",
			EntityID:    fmt.Sprint(p.ID),
			NewValues:   productValues(p),
		})
	}
	s.enqueueScan(ctx, p.BranchID)
	return p, nil
}

func (s *Service) Update(ctx context.Context, actorID string, id int64, in ProductInput) (*Product, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Update(ctx, id, in, DeriveStatus(in.Quantity))
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionProductUpdated,
			Description: fmt.Sprintf("Updated product %s", p.Name),
			EntityType:  "product",
			EntityID:    fmt.Sprint(id),
			OldValues:   productValues(before),
			NewValues:   productValues(p),
		})
	}
	s.enqueueScan(ctx, p.BranchID)
	return p, nil
}

// Delete refuses while the product appears on pending or approved
// requisitions.
func (s *Service) Delete(ctx context.Context, actorID string, id int64) error {
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	open, err := s.repo.CountOpenRequisitionItems(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrHasOpenRequests{Count: open}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionProductDeleted,
			Description: fmt.Sprintf("Deleted product %s", before.Name),
			EntityType:  "product",
			EntityID:    fmt.Sprint(id),
			OldValues:   productValues(before),
		})
	}
	return nil
}

// Import upserts rows by (product_name, branch_id). Existing rows get their
// quantity increased and price refreshed; new rows are created. Category
// names are resolved or created on the fly.
func (s *Service) Import(ctx context.Context, actorID string, branchID int64, rows []ImportRow) (*ImportResult, error) {
	res := &ImportResult{}
	for i, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" || row.Quantity < 0 || row.Price < 0 {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: invalid product", i+1))
			continue
		}

		var categoryID *int64
		if cat := categories.NormalizeName(row.CategoryName); cat != "" {
			id, err := s.repo.ResolveCategory(ctx, cat)
			if err != nil {
				return nil, err
			}
			categoryID = &id
		}

		existing, err := s.repo.FindByNameAndBranch(ctx, name, branchID)
		switch {
		case err == nil:
			qty := existing.Quantity + row.Quantity
			_, err = s.repo.Update(ctx, existing.ID, ProductInput{
				Name:       name,
				CategoryID: categoryID,
				BranchID:   branchID,
				Price:      row.Price,
				Quantity:   qty,
			}, DeriveStatus(qty))
			if err != nil {
				return nil, err
			}
			res.Updated++
		case errors.Is(err, shared.ErrNotFound):
			_, err = s.repo.Create(ctx, ProductInput{
				Name:       name,
				CategoryID: categoryID,
				BranchID:   branchID,
				Price:      row.Price,
				Quantity:   row.Quantity,
			}, DeriveStatus(row.Quantity))
			if err != nil {
				return nil, err
			}
			res.Imported++
		default:
			return nil, err
		}
	}
	if s.audit != nil && res.Imported+res.Updated > 0 {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionProductCreated,
			Description: fmt.Sprintf("Bulk import: %d created, %d updated", res.Imported, res.Updated),
			EntityType:  "product",
			EntityID:    fmt.Sprintf("branch:%d", branchID),
			Meta:        map[string]any{"imported": res.Imported, "updated": res.Updated, "skipped": res.Skipped},
		})
	}
	s.enqueueScan(ctx, branchID)
	return res, nil
}

func (s *Service) enqueueScan(ctx context.Context, branchID int64) {
	if s.scanner == nil {
		return
	}
	_ = s.scanner.EnqueueLowStockScan(ctx, branchID)
}

func productValues(p *Product) map[string]any {
	return map[string]any{
		"product_name": p.Name,
		"category_id":  p.CategoryID,
		"branch_id":    p.BranchID,
		"price":        p.Price,
		"quantity":     p.Quantity,
		"status":       p.Status,
	}
}

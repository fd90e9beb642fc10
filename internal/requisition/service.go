package requisition

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumina-ims/lumina/internal/products"
	"github.com/lumina-ims/lumina/internal/shared"
)

// Notifier delivers in-app notifications. Delivery failures must not fail
// the requisition operation.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message, link, typ string) error
}

// IdempotencyGuard deduplicates review submissions.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditSink records audit trail entries, best-effort.
type AuditSink interface {
	TryRecord(ctx context.Context, log shared.AuditLog)
}

const idempotencyModule = "requisition"

// Service implements the requisition workflow.
type Service struct {
	repo     Repository
	audit    AuditSink
	notifier Notifier
	guard    IdempotencyGuard
}

func NewService(repo Repository, audit AuditSink, notifier Notifier, guard IdempotencyGuard) *Service {
	return &Service{repo: repo, audit: audit, notifier: notifier, guard: guard}
}

// Create files a stock request against another branch and atomically
// reserves the requested quantities at the source.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Requisition, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, ErrEmptyItems
		}
	}

	requesterBranch, err := s.repo.GetUserBranch(ctx, in.RequesterID)
	if err != nil {
		return nil, err
	}
	if requesterBranch == in.TargetBranchID {
		return nil, ErrSelfRequest
	}

	recipient, err := s.repo.FindBranchManager(ctx, in.TargetBranchID)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	err = s.repo.InTx(ctx, func(tx TxRepository) error {
		if err := tx.InsertRequisition(ctx, requestID, in.RequesterID, recipient, in.Notes); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, requestID, in.Items); err != nil {
			return err
		}
		for _, it := range in.Items {
			stock, err := tx.GetStockForUpdate(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if stock.Available() < it.Quantity {
				return ErrInsufficientStock{
					ProductID:   stock.ProductID,
					ProductName: stock.ProductName,
					Requested:   it.Quantity,
					Available:   stock.Available(),
				}
			}
			if err := tx.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      in.RequesterID,
			Action:      shared.ActionRequestCreated,
			Description: fmt.Sprintf("Created stock request with %d item(s)", len(in.Items)),
			EntityType:  "product_request",
			EntityID:    requestID,
			Meta: map[string]any{
				"target_branch_id": in.TargetBranchID,
				"item_count":       len(in.Items),
			},
		})
	}
	s.notify(ctx, recipient, "New Stock Request",
		"A branch has requested stock from your inventory",
		"/requests/"+requestID, "request")

	return s.repo.GetByID(ctx, requestID)
}

func (s *Service) Get(ctx context.Context, requestID string) (*Requisition, error) {
	return s.repo.GetByID(ctx, requestID)
}

// Incoming returns pending requests addressed to the user.
func (s *Service) Incoming(ctx context.Context, userID string) ([]Requisition, error) {
	return s.repo.ListIncoming(ctx, userID)
}

// Sent returns the user's own requests in any status.
func (s *Service) Sent(ctx context.Context, userID string) ([]Requisition, error) {
	return s.repo.ListSent(ctx, userID)
}

// IncomingForBranch resolves the branch's manager and returns that
// manager's pending queue.
func (s *Service) IncomingForBranch(ctx context.Context, branchID int64) ([]Requisition, error) {
	manager, err := s.repo.FindBranchManager(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListIncoming(ctx, manager)
}

// All returns every requisition, Super Admin view.
func (s *Service) All(ctx context.Context) ([]Requisition, error) {
	return s.repo.ListAll(ctx)
}

// Review approves or denies a pending request. The replay guard key is
// derived from the request id, so a concurrent or repeated review of the
// same request is rejected with ErrIdempotencyConflict; the status update
// itself only lands on a row that is still pending.
func (s *Service) Review(ctx context.Context, requestID, reviewerID, action, reason string) (*Requisition, error) {
	if action != StatusApproved && action != StatusDenied {
		return nil, fmt.Errorf("%w: action must be approved or denied", ErrInvalidState)
	}
	key := fmt.Sprintf("REQ:%s", requestID)
	if s.guard != nil {
		if err := s.guard.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			return nil, err
		}
	}

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		s.releaseKey(ctx, key)
		return nil, err
	}
	if req.Status != StatusPending {
		s.releaseKey(ctx, key)
		return nil, ErrInvalidState
	}

	if action == StatusApproved {
		err = s.approve(ctx, req, reviewerID)
	} else {
		err = s.deny(ctx, req, reviewerID, reason)
	}
	if err != nil {
		s.releaseKey(ctx, key)
		return nil, err
	}
	return s.repo.GetByID(ctx, requestID)
}

func (s *Service) approve(ctx context.Context, req *Requisition, reviewerID string) error {
	type transferred struct {
		ProductID   int64  `json:"product_id"`
		ProductName string `json:"product_name"`
		Quantity    int64  `json:"quantity"`
	}
	var moved []transferred

	err := s.repo.InTx(ctx, func(tx TxRepository) error {
		for _, it := range req.Items {
			stock, err := tx.GetStockForUpdate(ctx, it.ProductID)
			if err != nil {
				return err
			}
			remaining := stock.Quantity - it.Quantity
			if err := tx.Deduct(ctx, it.ProductID, it.Quantity, products.DeriveStatus(remaining)); err != nil {
				return err
			}
			if _, err := tx.UpsertDestination(ctx, *stock, req.RequesterBranchID, it.Quantity,
				products.DeriveStatus(it.Quantity)); err != nil {
				return err
			}
			if err := tx.InsertTransfer(ctx, req.RequestID, it.ProductID, it.Quantity,
				stock.BranchID, req.RequesterBranchID); err != nil {
				return err
			}
			moved = append(moved, transferred{
				ProductID:   it.ProductID,
				ProductName: stock.ProductName,
				Quantity:    it.Quantity,
			})
		}
		return tx.UpdateStatus(ctx, req.RequestID, StatusApproved, reviewerID)
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      reviewerID,
			Action:      shared.ActionTransfer,
			Description: fmt.Sprintf("Transferred %d item(s) to branch %d", len(moved), req.RequesterBranchID),
			EntityType:  "product_request",
			EntityID:    req.RequestID,
			Meta: map[string]any{
				"items_transferred":   moved,
				"requester_branch_id": req.RequesterBranchID,
			},
		})
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      reviewerID,
			Action:      shared.ActionRequestApproved,
			Description: "Approved stock request",
			EntityType:  "product_request",
			EntityID:    req.RequestID,
		})
	}
	s.notify(ctx, req.RequestFrom, "Request Approved",
		"Your stock request was approved and is now in transit",
		"/requests/"+req.RequestID, "request")
	return nil
}

func (s *Service) deny(ctx context.Context, req *Requisition, reviewerID, reason string) error {
	err := s.repo.InTx(ctx, func(tx TxRepository) error {
		for _, it := range req.Items {
			if err := tx.Release(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, req.RequestID, StatusDenied, reviewerID)
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      reviewerID,
			Action:      shared.ActionRequestDenied,
			Description: "Denied stock request",
			EntityType:  "product_request",
			EntityID:    req.RequestID,
			Meta:        map[string]any{"reason": reason},
		})
	}
	message := "Your stock request was denied"
	if reason != "" {
		message += ": " + reason
	}
	s.notify(ctx, req.RequestFrom, "Request Denied", message,
		"/requests/"+req.RequestID, "request")
	return nil
}

// MarkArrived transitions an approved request to arrived and completes its
// ledger rows.
func (s *Service) MarkArrived(ctx context.Context, requestID, actorID string) (*Requisition, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusApproved {
		return nil, ErrInvalidState
	}
	err = s.repo.InTx(ctx, func(tx TxRepository) error {
		if err := tx.MarkArrived(ctx, requestID); err != nil {
			return err
		}
		return tx.CompleteTransfers(ctx, requestID)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, req.RequestTo, "Stock Arrived",
		"Transferred stock has been received by the requesting branch",
		"/requests/"+requestID, "request")
	return s.repo.GetByID(ctx, requestID)
}

// SweepStale denies pending requests older than the given age, releasing
// their reservations. Used by the background worker.
func (s *Service) SweepStale(ctx context.Context, age time.Duration) (int, error) {
	stale, err := s.repo.ListStalePending(ctx, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	swept := 0
	for i := range stale {
		req := stale[i]
		if err := s.deny(ctx, &req, "", "request expired without review"); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func (s *Service) notify(ctx context.Context, userID, title, message, link, typ string) {
	if s.notifier == nil || userID == "" {
		return
	}
	_ = s.notifier.Notify(ctx, userID, title, message, link, typ)
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if s.guard == nil || key == "" {
		return
	}
	_ = s.guard.Delete(ctx, key)
}

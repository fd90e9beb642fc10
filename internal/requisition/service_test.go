package requisition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumina-ims/lumina/internal/products"
	"github.com/lumina-ims/lumina/internal/shared"
	"github.com/lumina-ims/lumina/internal/transfers"
)

type stockState struct {
	StockRow
	Status string
}

type transferRow struct {
	RequestID      string
	ProductID      int64
	Quantity       int64
	SourceBranchID int64
	DestBranchID   int64
	Status         string
}

// fakeStore implements Repository and TxRepository in memory. InTx snapshots
// product state and restores it when the callback fails, mirroring a
// rollback.
type fakeStore struct {
	nextProductID int64
	requisitions  map[string]*Requisition
	stock         map[int64]*stockState
	managers      map[int64]string
	userBranches  map[string]int64
	transfers     []transferRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requisitions: map[string]*Requisition{},
		stock:        map[int64]*stockState{},
		managers:     map[int64]string{},
		userBranches: map[string]int64{},
	}
}

func (f *fakeStore) addStock(name string, branchID, qty, reserved int64, price float64) int64 {
	f.nextProductID++
	f.stock[f.nextProductID] = &stockState{
		StockRow: StockRow{
			ProductID: f.nextProductID, ProductName: name, BranchID: branchID,
			Price: price, Quantity: qty, Reserved: reserved,
		},
		Status: products.DeriveStatus(qty),
	}
	return f.nextProductID
}

func (f *fakeStore) snapshot() map[int64]*stockState {
	cp := map[int64]*stockState{}
	for id, s := range f.stock {
		dup := *s
		cp[id] = &dup
	}
	return cp
}

func (f *fakeStore) InTx(_ context.Context, fn func(TxRepository) error) error {
	stockBefore := f.snapshot()
	reqsBefore := map[string]*Requisition{}
	for id, r := range f.requisitions {
		dup := *r
		dup.Items = append([]Item(nil), r.Items...)
		reqsBefore[id] = &dup
	}
	transfersBefore := append([]transferRow(nil), f.transfers...)

	if err := fn(f); err != nil {
		f.stock = stockBefore
		f.requisitions = reqsBefore
		f.transfers = transfersBefore
		return err
	}
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, requestID string) (*Requisition, error) {
	r, ok := f.requisitions[requestID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *r
	cp.RequesterBranchID = f.userBranches[r.RequestFrom]
	cp.TargetBranchID = f.userBranches[r.RequestTo]
	cp.Items = append([]Item(nil), r.Items...)
	return &cp, nil
}

func (f *fakeStore) ListIncoming(ctx context.Context, userID string) ([]Requisition, error) {
	var out []Requisition
	for id, r := range f.requisitions {
		if r.RequestTo == userID && r.Status == StatusPending {
			cp, _ := f.GetByID(ctx, id)
			out = append(out, *cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSent(ctx context.Context, userID string) ([]Requisition, error) {
	var out []Requisition
	for id, r := range f.requisitions {
		if r.RequestFrom == userID {
			cp, _ := f.GetByID(ctx, id)
			out = append(out, *cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]Requisition, error) {
	var out []Requisition
	for id := range f.requisitions {
		cp, _ := f.GetByID(ctx, id)
		out = append(out, *cp)
	}
	return out, nil
}

func (f *fakeStore) ListStalePending(ctx context.Context, cutoff time.Time) ([]Requisition, error) {
	var out []Requisition
	for id, r := range f.requisitions {
		if r.Status == StatusPending && r.CreatedAt.Before(cutoff) {
			cp, _ := f.GetByID(ctx, id)
			out = append(out, *cp)
		}
	}
	return out, nil
}

func (f *fakeStore) FindBranchManager(_ context.Context, branchID int64) (string, error) {
	if m, ok := f.managers[branchID]; ok {
		return m, nil
	}
	return "", ErrNoBranchManager
}

func (f *fakeStore) GetUserBranch(_ context.Context, userID string) (int64, error) {
	if b, ok := f.userBranches[userID]; ok {
		return b, nil
	}
	return 0, shared.ErrNotFound
}

func (f *fakeStore) InsertRequisition(_ context.Context, requestID, from, to, notes string) error {
	f.requisitions[requestID] = &Requisition{
		RequestID: requestID, RequestFrom: from, RequestTo: to,
		Status: StatusPending, Notes: notes, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	return nil
}

func (f *fakeStore) InsertItems(_ context.Context, requestID string, items []ItemInput) error {
	r := f.requisitions[requestID]
	for _, it := range items {
		name := ""
		if s, ok := f.stock[it.ProductID]; ok {
			name = s.ProductName
		}
		r.Items = append(r.Items, Item{ProductID: it.ProductID, ProductName: name, Quantity: it.Quantity})
	}
	return nil
}

func (f *fakeStore) GetStockForUpdate(_ context.Context, productID int64) (*StockRow, error) {
	s, ok := f.stock[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := s.StockRow
	return &cp, nil
}

func (f *fakeStore) Reserve(_ context.Context, productID, qty int64) error {
	f.stock[productID].Reserved += qty
	return nil
}

func (f *fakeStore) Release(_ context.Context, productID, qty int64) error {
	s := f.stock[productID]
	s.Reserved -= qty
	if s.Reserved < 0 {
		s.Reserved = 0
	}
	return nil
}

func (f *fakeStore) Deduct(_ context.Context, productID, qty int64, status string) error {
	s := f.stock[productID]
	s.Quantity -= qty
	s.Reserved -= qty
	if s.Reserved < 0 {
		s.Reserved = 0
	}
	s.Status = status
	return nil
}

func (f *fakeStore) UpsertDestination(_ context.Context, src StockRow, destBranchID, qty int64, status string) (int64, error) {
	for id, s := range f.stock {
		if s.ProductName == src.ProductName && s.BranchID == destBranchID {
			s.Quantity += qty
			s.Price = src.Price
			s.Status = products.DeriveStatus(s.Quantity)
			return id, nil
		}
	}
	f.nextProductID++
	f.stock[f.nextProductID] = &stockState{
		StockRow: StockRow{
			ProductID: f.nextProductID, ProductName: src.ProductName, CategoryID: src.CategoryID,
			BranchID: destBranchID, Price: src.Price, Quantity: qty,
		},
		Status: status,
	}
	return f.nextProductID, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, requestID, status, reviewedBy string) error {
	r, ok := f.requisitions[requestID]
	if !ok {
		return shared.ErrNotFound
	}
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = status
	if reviewedBy != "" {
		r.ReviewedBy = &reviewedBy
	}
	now := time.Now()
	r.ReviewedAt = &now
	return nil
}

func (f *fakeStore) MarkArrived(_ context.Context, requestID string) error {
	r, ok := f.requisitions[requestID]
	if !ok {
		return shared.ErrNotFound
	}
	if r.Status != StatusApproved {
		return ErrInvalidState
	}
	r.Status = StatusArrived
	now := time.Now()
	r.ArrivedAt = &now
	return nil
}

func (f *fakeStore) InsertTransfer(_ context.Context, requestID string, productID, qty, sourceBranchID, destBranchID int64) error {
	f.transfers = append(f.transfers, transferRow{
		RequestID: requestID, ProductID: productID, Quantity: qty,
		SourceBranchID: sourceBranchID, DestBranchID: destBranchID,
		Status: transfers.StatusInTransit,
	})
	return nil
}

func (f *fakeStore) CompleteTransfers(_ context.Context, requestID string) error {
	for i := range f.transfers {
		if f.transfers[i].RequestID == requestID {
			f.transfers[i].Status = transfers.StatusCompleted
		}
	}
	return nil
}

type fakeNotifier struct {
	sent []struct {
		UserID, Title, Message string
	}
}

func (f *fakeNotifier) Notify(_ context.Context, userID, title, message, _, _ string) error {
	f.sent = append(f.sent, struct{ UserID, Title, Message string }{userID, title, message})
	return nil
}

type fakeAudit struct {
	logs []shared.AuditLog
}

func (f *fakeAudit) TryRecord(_ context.Context, log shared.AuditLog) {
	f.logs = append(f.logs, log)
}

func (f *fakeAudit) byAction(action string) []shared.AuditLog {
	var out []shared.AuditLog
	for _, l := range f.logs {
		if l.Action == action {
			out = append(out, l)
		}
	}
	return out
}

type fakeGuard struct {
	keys    map[string]bool
	deleted []string
}

func newFakeGuard() *fakeGuard { return &fakeGuard{keys: map[string]bool{}} }

func (f *fakeGuard) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeGuard) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	f.deleted = append(f.deleted, key)
	return nil
}

const (
	requesterID = "aaaaaaaa-0000-0000-0000-000000000001"
	managerID   = "bbbbbbbb-0000-0000-0000-000000000002"
)

func seededStore() (*fakeStore, int64) {
	store := newFakeStore()
	store.userBranches[requesterID] = 1
	store.userBranches[managerID] = 2
	store.managers[2] = managerID
	productID := store.addStock("LED Bulb", 2, 50, 0, 120)
	return store, productID
}

func TestCreateReservesStock(t *testing.T) {
	store, productID := seededStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, &fakeAudit{}, notifier, nil)

	req, err := svc.Create(context.Background(), CreateInput{
		RequesterID:    requesterID,
		TargetBranchID: 2,
		Items:          []ItemInput{{ProductID: productID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, req.Status)
	require.Equal(t, managerID, req.RequestTo)
	require.Len(t, req.Items, 1)

	require.EqualValues(t, 10, store.stock[productID].Reserved)
	require.EqualValues(t, 50, store.stock[productID].Quantity)

	require.Len(t, notifier.sent, 1)
	require.Equal(t, managerID, notifier.sent[0].UserID)
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	store, productID := seededStore()
	svc := NewService(store, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
	})
	require.ErrorIs(t, err, ErrEmptyItems)
	require.Contains(t, err.Error(), "cannot be empty")

	_, err = svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{{ProductID: productID, Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreateRejectsSelfRequest(t *testing.T) {
	store, productID := seededStore()
	svc := NewService(store, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 1,
		Items: []ItemInput{{ProductID: productID, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrSelfRequest)
}

func TestCreateRequiresBranchManager(t *testing.T) {
	store, productID := seededStore()
	store.userBranches["cccccccc-0000-0000-0000-000000000003"] = 3
	svc := NewService(store, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 3,
		Items: []ItemInput{{ProductID: productID, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrNoBranchManager)
}

func TestCreateInsufficientStockRollsBack(t *testing.T) {
	store, productID := seededStore()
	scarceID := store.addStock("Floodlight", 2, 5, 3, 900)
	svc := NewService(store, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{
			{ProductID: productID, Quantity: 10},
			{ProductID: scarceID, Quantity: 3},
		},
	})
	var insufficient ErrInsufficientStock
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, scarceID, insufficient.ProductID)
	require.EqualValues(t, 3, insufficient.Requested)
	require.EqualValues(t, 2, insufficient.Available)

	// The first line's reservation must not survive the failed transaction.
	require.EqualValues(t, 0, store.stock[productID].Reserved)
	require.Empty(t, store.requisitions)
}

func TestReviewApproveTransfersStock(t *testing.T) {
	store, productID := seededStore()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	svc := NewService(store, audit, notifier, nil)

	req, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{{ProductID: productID, Quantity: 30}},
	})
	require.NoError(t, err)

	reviewed, err := svc.Review(context.Background(), req.RequestID, managerID, StatusApproved, "")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	require.Equal(t, managerID, *reviewed.ReviewedBy)

	src := store.stock[productID]
	require.EqualValues(t, 20, src.Quantity)
	require.EqualValues(t, 0, src.Reserved)
	require.Equal(t, products.StatusInStock, src.Status)

	var dest *stockState
	for _, s := range store.stock {
		if s.ProductName == "LED Bulb" && s.BranchID == 1 {
			dest = s
		}
	}
	require.NotNil(t, dest)
	require.EqualValues(t, 30, dest.Quantity)
	require.Equal(t, 120.0, dest.Price)

	require.Len(t, store.transfers, 1)
	ledger := store.transfers[0]
	require.Equal(t, req.RequestID, ledger.RequestID)
	require.EqualValues(t, 2, ledger.SourceBranchID)
	require.EqualValues(t, 1, ledger.DestBranchID)
	require.Equal(t, transfers.StatusInTransit, ledger.Status)

	transferLogs := audit.byAction(shared.ActionTransfer)
	require.Len(t, transferLogs, 1)
	require.EqualValues(t, 1, transferLogs[0].Meta["requester_branch_id"])
	require.Len(t, audit.byAction(shared.ActionRequestApproved), 1)

	// Requester hears about the approval.
	last := notifier.sent[len(notifier.sent)-1]
	require.Equal(t, requesterID, last.UserID)
	require.Equal(t, "Request Approved", last.Title)
}

func TestReviewDenyReleasesReservation(t *testing.T) {
	store, productID := seededStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, &fakeAudit{}, notifier, nil)

	req, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{{ProductID: productID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 10, store.stock[productID].Reserved)

	reviewed, err := svc.Review(context.Background(), req.RequestID, managerID, StatusDenied, "stock needed locally")
	require.NoError(t, err)
	require.Equal(t, StatusDenied, reviewed.Status)

	require.EqualValues(t, 0, store.stock[productID].Reserved)
	require.EqualValues(t, 50, store.stock[productID].Quantity)
	require.Empty(t, store.transfers)

	last := notifier.sent[len(notifier.sent)-1]
	require.Contains(t, last.Message, "stock needed locally")
}

func TestReviewRequiresPendingState(t *testing.T) {
	store, productID := seededStore()
	svc := NewService(store, nil, nil, nil)

	req, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{{ProductID: productID, Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), req.RequestID, managerID, StatusDenied, "")
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), req.RequestID, managerID, StatusApproved, "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestReviewIdempotency(t *testing.T) {
	store, productID := seededStore()
	guard := newFakeGuard()
	svc := NewService(store, nil, nil, guard)

	req, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{{ProductID: productID, Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), req.RequestID, managerID, StatusApproved, "")
	require.NoError(t, err)

	// The guard key is derived from the request id, so a replay is refused
	// outright.
	_, err = svc.Review(context.Background(), req.RequestID, managerID, StatusApproved, "")
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.True(t, guard.keys["REQ:"+req.RequestID])
}

func TestReviewConcurrentSecondReviewerBlocked(t *testing.T) {
	store, productID := seededStore()
	guard := newFakeGuard()
	svc := NewService(store, nil, nil, guard)

	req, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{{ProductID: productID, Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), req.RequestID, managerID, StatusApproved, "")
	require.NoError(t, err)

	// A second reviewer racing the first may still observe the request as
	// pending. Even then the review must not run twice.
	store.requisitions[req.RequestID].Status = StatusPending
	_, err = svc.Review(context.Background(), req.RequestID, managerID, StatusApproved, "")
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	require.Equal(t, int64(45), store.stock[productID].Quantity)
	require.Len(t, store.transfers, 1)
}

func TestReviewStatusGuardStopsSecondCommit(t *testing.T) {
	store, productID := seededStore()
	svc := NewService(store, nil, nil, nil)

	req, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{{ProductID: productID, Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), req.RequestID, managerID, StatusApproved, "")
	require.NoError(t, err)
	deducted := store.stock[productID].Quantity

	// Without a replay guard the conditional status update is the last
	// defense: it refuses to move a request that already left pending, and
	// the surrounding transaction rolls the stock mutations back.
	err = store.InTx(context.Background(), func(tx TxRepository) error {
		stock, err := tx.GetStockForUpdate(context.Background(), productID)
		if err != nil {
			return err
		}
		if err := tx.Deduct(context.Background(), productID, 5, products.DeriveStatus(stock.Quantity-5)); err != nil {
			return err
		}
		return tx.UpdateStatus(context.Background(), req.RequestID, StatusApproved, managerID)
	})
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, deducted, store.stock[productID].Quantity)
	require.Len(t, store.transfers, 1)
}

func TestMarkArrived(t *testing.T) {
	store, productID := seededStore()
	svc := NewService(store, nil, nil, nil)

	req, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{{ProductID: productID, Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = svc.MarkArrived(context.Background(), req.RequestID, requesterID)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Review(context.Background(), req.RequestID, managerID, StatusApproved, "")
	require.NoError(t, err)

	arrived, err := svc.MarkArrived(context.Background(), req.RequestID, requesterID)
	require.NoError(t, err)
	require.Equal(t, StatusArrived, arrived.Status)
	require.NotNil(t, arrived.ArrivedAt)
	require.Equal(t, transfers.StatusCompleted, store.transfers[0].Status)
}

func TestSweepStale(t *testing.T) {
	store, productID := seededStore()
	svc := NewService(store, nil, nil, nil)

	req, err := svc.Create(context.Background(), CreateInput{
		RequesterID: requesterID, TargetBranchID: 2,
		Items: []ItemInput{{ProductID: productID, Quantity: 10}},
	})
	require.NoError(t, err)
	store.requisitions[req.RequestID].CreatedAt = time.Now().Add(-10 * 24 * time.Hour)

	swept, err := svc.SweepStale(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, swept)
	require.Equal(t, StatusDenied, store.requisitions[req.RequestID].Status)
	require.EqualValues(t, 0, store.stock[productID].Reserved)

	swept, err = svc.SweepStale(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	require.Zero(t, swept)
}

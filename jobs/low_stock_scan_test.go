package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeReporter struct {
	branches map[int64][]LowStockItem
	managers map[int64]string
}

func (f *fakeReporter) BranchIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.branches))
	for id := range f.branches {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeReporter) LowStockItems(ctx context.Context, branchID int64) ([]LowStockItem, error) {
	return f.branches[branchID], nil
}

func (f *fakeReporter) BranchManager(ctx context.Context, branchID int64) (string, error) {
	return f.managers[branchID], nil
}

type sentAlert struct {
	userID  string
	title   string
	message string
	link    string
	typ     string
}

type fakeNotifier struct {
	sent []sentAlert
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, title, message, link, typ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentAlert{userID, title, message, link, typ})
	return nil
}

func TestLowStockScanNotifiesManager(t *testing.T) {
	reporter := &fakeReporter{
		branches: map[int64][]LowStockItem{
			1: {
				{ProductID: 10, Name: "LED Bulb", Quantity: 5, Status: "Low Stock"},
				{ProductID: 11, Name: "Floodlight", Quantity: 0, Status: "Out of Stock"},
			},
		},
		managers: map[int64]string{1: "manager-1"},
	}
	notifier := &fakeNotifier{}
	job := NewLowStockScanJob(reporter, notifier, nil)

	task, err := NewStockLowScanTask(1)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, notifier.sent, 1)
	alert := notifier.sent[0]
	require.Equal(t, "manager-1", alert.userID)
	require.Equal(t, "Low Stock Alert", alert.title)
	require.Equal(t, "2 product(s) in your branch are running low, 1 out of stock", alert.message)
	require.Equal(t, "warning", alert.typ)
}

func TestLowStockScanSkipsHealthyBranch(t *testing.T) {
	reporter := &fakeReporter{
		branches: map[int64][]LowStockItem{2: nil},
		managers: map[int64]string{2: "manager-2"},
	}
	notifier := &fakeNotifier{}
	job := NewLowStockScanJob(reporter, notifier, nil)

	task, err := NewStockLowScanTask(2)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Empty(t, notifier.sent)
}

func TestLowStockScanWithoutManager(t *testing.T) {
	reporter := &fakeReporter{
		branches: map[int64][]LowStockItem{
			3: {{ProductID: 20, Name: "Downlight", Quantity: 2, Status: "Low Stock"}},
		},
		managers: map[int64]string{},
	}
	notifier := &fakeNotifier{}
	job := NewLowStockScanJob(reporter, notifier, nil)

	task, err := NewStockLowScanTask(3)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Empty(t, notifier.sent)
}

func TestLowStockScanZeroBranchScansAll(t *testing.T) {
	reporter := &fakeReporter{
		branches: map[int64][]LowStockItem{
			1: {{ProductID: 10, Name: "LED Bulb", Quantity: 3, Status: "Low Stock"}},
			2: {{ProductID: 11, Name: "Floodlight", Quantity: 1, Status: "Low Stock"}},
		},
		managers: map[int64]string{1: "manager-1", 2: "manager-2"},
	}
	notifier := &fakeNotifier{}
	job := NewLowStockScanJob(reporter, notifier, nil)

	task, err := NewStockLowScanTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, notifier.sent, 2)
}

type fakeSweeper struct {
	gotAge time.Duration
	swept  int
	err    error
}

func (f *fakeSweeper) SweepStale(ctx context.Context, age time.Duration) (int, error) {
	f.gotAge = age
	return f.swept, f.err
}

func TestStaleSweepUsesPayloadAge(t *testing.T) {
	sweeper := &fakeSweeper{swept: 2}
	job := NewStaleRequestSweepJob(sweeper, 7*24*time.Hour, nil)

	task, err := NewRequisitionStaleSweepTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 48*time.Hour, sweeper.gotAge)
}

func TestStaleSweepFallsBackToConfiguredAge(t *testing.T) {
	sweeper := &fakeSweeper{}
	job := NewStaleRequestSweepJob(sweeper, 72*time.Hour, nil)

	task, err := NewRequisitionStaleSweepTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 72*time.Hour, sweeper.gotAge)
}

func TestStaleSweepPropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("boom")}
	job := NewStaleRequestSweepJob(sweeper, time.Hour, nil)

	task, err := NewRequisitionStaleSweepTask(time.Hour)
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}

type fakePruner struct {
	gotOlderThan time.Duration
}

func (f *fakePruner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	f.gotOlderThan = olderThan
	return nil
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	pruner := &fakePruner{}
	job := NewIdempotencyCleanupJob(pruner, nil)

	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 24*time.Hour, pruner.gotOlderThan)
}

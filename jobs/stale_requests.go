package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// StaleSweeper denies pending requisitions older than the given age.
type StaleSweeper interface {
	SweepStale(ctx context.Context, age time.Duration) (int, error)
}

// StaleRequestSweepJob expires requisitions nobody reviewed in time.
type StaleRequestSweepJob struct {
	Sweeper StaleSweeper
	MaxAge  time.Duration
	Logger  *slog.Logger
}

// NewStaleRequestSweepJob initialises the stale sweep handler. maxAge is the
// fallback when the task payload carries no threshold.
func NewStaleRequestSweepJob(sweeper StaleSweeper, maxAge time.Duration, logger *slog.Logger) *StaleRequestSweepJob {
	return &StaleRequestSweepJob{Sweeper: sweeper, MaxAge: maxAge, Logger: logger}
}

// Handle executes the sweep.
func (j *StaleRequestSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sweeper == nil {
		return errors.New("stale sweep: handler not configured")
	}
	var payload RequisitionStaleSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	age := payload.MaxAge
	if age <= 0 {
		age = j.MaxAge
	}
	if age <= 0 {
		age = 7 * 24 * time.Hour
	}

	swept, err := j.Sweeper.SweepStale(ctx, age)
	if err != nil {
		return fmt.Errorf("sweep stale requests: %w", err)
	}
	if swept > 0 {
		j.log().Info("stale requests denied",
			slog.Int("count", swept),
			slog.Duration("max_age", age))
	}
	return nil
}

func (j *StaleRequestSweepJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

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

// KeyPruner removes idempotency keys past their retention window.
type KeyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob prunes stored idempotency keys so replay protection
// does not grow without bound.
type IdempotencyCleanupJob struct {
	Pruner KeyPruner
	Logger *slog.Logger
}

// NewIdempotencyCleanupJob initialises the cleanup handler.
func NewIdempotencyCleanupJob(pruner KeyPruner, logger *slog.Logger) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Pruner: pruner, Logger: logger}
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pruner == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	olderThan := payload.OlderThan
	if olderThan <= 0 {
		olderThan = 24 * time.Hour
	}
	if err := j.Pruner.Cleanup(ctx, olderThan); err != nil {
		return fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	if j.Logger != nil {
		j.Logger.Debug("idempotency keys pruned", slog.Duration("older_than", olderThan))
	}
	return nil
}

package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit actions recorded by the service.
const (
	ActionUserLogin       = "USER_LOGIN"
	ActionUserCreated     = "USER_CREATED"
	ActionUserUpdated     = "USER_UPDATED"
	ActionUserDeleted     = "USER_DELETED"
	ActionUserSetupDone   = "USER_SETUP_COMPLETED"
	ActionProductCreated  = "PRODUCT_CREATED"
	ActionProductUpdated  = "PRODUCT_UPDATED"
	ActionProductDeleted  = "PRODUCT_DELETED"
	ActionBranchCreated   = "BRANCH_CREATED"
	ActionBranchUpdated   = "BRANCH_UPDATED"
	ActionBranchDeleted   = "BRANCH_DELETED"
	ActionCategoryCreated = "CATEGORY_CREATED"
	ActionCategoryUpdated = "CATEGORY_UPDATED"
	ActionCategoryDeleted = "CATEGORY_DELETED"
	ActionRequestCreated  = "PRODUCT_REQUEST_CREATED"
	ActionRequestApproved = "PRODUCT_REQUEST_APPROVED"
	ActionRequestDenied   = "PRODUCT_REQUEST_DENIED"
	ActionTransfer        = "INVENTORY_TRANSFER"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	UserID      string
	Action      string
	Description string
	EntityType  string
	EntityID    string
	Meta        map[string]any
	OldValues   map[string]any
	NewValues   map[string]any
	At          time.Time
}

// AuditLogger writes records into audit_logs. Writes are best-effort: the
// caller's operation must not fail because the trail could not be written.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool, logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{pool: pool, logger: logger}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.EntityType == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity_type/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	oldJSON, err := json.Marshal(log.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := json.Marshal(log.NewValues)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (user_id, action, description, entity_type, entity_id, metadata, old_values, new_values, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))`,
		nullString(log.UserID), log.Action, log.Description, log.EntityType, log.EntityID, metaJSON, oldJSON, newJSON, nullTime(log.At))
	return err
}

// TryRecord records the entry and only logs on failure.
func (l *AuditLogger) TryRecord(ctx context.Context, log AuditLog) {
	if l == nil {
		return
	}
	if err := l.Record(ctx, log); err != nil {
		l.logger.Error("record audit log", slog.String("action", log.Action), slog.Any("error", err))
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

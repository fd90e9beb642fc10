package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the audit trail. Writes go through shared.AuditLogger.
type Repository interface {
	Query(ctx context.Context, f Filter) ([]Entry, int64, error)
	QueryStats(ctx context.Context, f Filter) (*Stats, error)
}

// PGRepository is the Postgres-backed implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const entryColumns = `
	a.id, a.user_id, COALESCE(u.name, ''), COALESCE(u.email, ''),
	COALESCE(r.role_name, ''), COALESCE(b.branch_name, ''),
	a.action, a.description, a.entity_type, a.entity_id,
	a.metadata, a.old_values, a.new_values, a.occurred_at`

const entryFrom = `
	FROM audit_logs a
	LEFT JOIN users u ON u.user_id = a.user_id
	LEFT JOIN roles r ON r.id = u.role_id
	LEFT JOIN branches b ON b.id = u.branch_id`

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Action != "" {
		add("a.action = $%d", f.Action)
	}
	if f.UserID != "" {
		add("a.user_id = $%d", f.UserID)
	}
	if f.EntityType != "" {
		add("a.entity_type = $%d", f.EntityType)
	}
	if f.StartDate != nil {
		add("a.occurred_at >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("a.occurred_at <= $%d", *f.EndDate)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query returns one page of matching entries plus the total match count.
func (r *PGRepository) Query(ctx context.Context, f Filter) ([]Entry, int64, error) {
	where, args := buildWhere(f)

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	paged := append(args, limit, (page-1)*limit)
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+entryFrom+where+
			fmt.Sprintf(` ORDER BY a.occurred_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2),
		paged...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// QueryStats aggregates totals, per-action and per-user counts, and the ten
// most recent entries in the window.
func (r *PGRepository) QueryStats(ctx context.Context, f Filter) (*Stats, error) {
	where, args := buildWhere(f)
	stats := &Stats{
		ActionsByType: map[string]int64{},
		ActionsByUser: map[string]int64{},
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs a`+where, args...).Scan(&stats.TotalActions); err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}

	byType, err := r.pool.Query(ctx,
		`SELECT a.action, COUNT(*) FROM audit_logs a`+where+` GROUP BY a.action`, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate actions: %w", err)
	}
	defer byType.Close()
	for byType.Next() {
		var action string
		var n int64
		if err := byType.Scan(&action, &n); err != nil {
			return nil, err
		}
		stats.ActionsByType[action] = n
	}
	if err := byType.Err(); err != nil {
		return nil, err
	}

	byUser, err := r.pool.Query(ctx,
		`SELECT COALESCE(a.user_id::text, ''), COUNT(*) FROM audit_logs a`+where+` GROUP BY a.user_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate users: %w", err)
	}
	defer byUser.Close()
	for byUser.Next() {
		var userID string
		var n int64
		if err := byUser.Scan(&userID, &n); err != nil {
			return nil, err
		}
		stats.ActionsByUser[userID] = n
	}
	if err := byUser.Err(); err != nil {
		return nil, err
	}

	recent, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+entryFrom+where+` ORDER BY a.occurred_at DESC LIMIT 10`, args...)
	if err != nil {
		return nil, fmt.Errorf("recent audit logs: %w", err)
	}
	defer recent.Close()
	stats.Recent, err = collectEntries(recent)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var metaJSON, oldJSON, newJSON []byte
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.UserName, &e.UserEmail,
			&e.RoleName, &e.BranchName,
			&e.Action, &e.Description, &e.EntityType, &e.EntityID,
			&metaJSON, &oldJSON, &newJSON, &e.OccurredAt,
		); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		if len(oldJSON) > 0 {
			_ = json.Unmarshal(oldJSON, &e.OldValues)
		}
		if len(newJSON) > 0 {
			_ = json.Unmarshal(newJSON, &e.NewValues)
		}
		e.Enrich()
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)

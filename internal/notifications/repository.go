package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-ims/lumina/internal/shared"
)

// Repository abstracts notification persistence.
type Repository interface {
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, in CreateInput) (*Notification, error)
	MarkRead(ctx context.Context, in MarkReadInput) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository is the Postgres-backed implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const notificationColumns = `id, user_id, title, message, COALESCE(link, ''), type, read, metadata, created_at`

func (r *PGRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *PGRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (r *PGRepository) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	metaJSON, err := json.Marshal(in.Metadata)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, message, link, type, read, metadata)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, FALSE, $6)
		RETURNING `+notificationColumns,
		in.UserID, in.Title, in.Message, in.Link, in.Type, metaJSON)
	n, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// MarkRead flags rows by explicit IDs, or by link when no IDs are given.
func (r *PGRepository) MarkRead(ctx context.Context, in MarkReadInput) (int64, error) {
	var tagCmd string
	var args []any
	if len(in.IDs) > 0 {
		tagCmd = `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND id = ANY($2)`
		args = []any{in.UserID, in.IDs}
	} else {
		tagCmd = `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND link = $2`
		args = []any{in.UserID, in.Link}
	}
	tag, err := r.pool.Exec(ctx, tagCmd, args...)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var metaJSON []byte
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Link, &n.Type,
		&n.Read, &metaJSON, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &n.Metadata)
	}
	return &n, nil
}

var _ Repository = (*PGRepository)(nil)

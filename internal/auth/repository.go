package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-ims/lumina/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, userID string) (*Account, error)
	CreatePending(ctx context.Context, invite PendingInvite) error
	FindBySetupToken(ctx context.Context, token string) (*PendingInvite, error)
	ActivateAccount(ctx context.Context, userID, passwordHash string) error
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	FindByResetToken(ctx context.Context, token string) (*Account, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `u.user_id, u.name, u.email, u.password_hash, u.role_id, r.role_name, u.branch_id, u.status, u.created_at, u.updated_at`

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+`
FROM users u JOIN roles r ON r.id = u.role_id
WHERE u.email = $1`, email)
	return scanAccount(row)
}

func (r *PGRepository) FindByID(ctx context.Context, userID string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+`
FROM users u JOIN roles r ON r.id = u.role_id
WHERE u.user_id = $1`, userID)
	return scanAccount(row)
}

func (r *PGRepository) CreatePending(ctx context.Context, invite PendingInvite) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO users (user_id, name, email, role_id, branch_id, status, setup_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 'Pending', $6, NOW(), NOW())`,
		invite.UserID, invite.Name, invite.Email, invite.RoleID, invite.BranchID, invite.SetupToken)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *PGRepository) FindBySetupToken(ctx context.Context, token string) (*PendingInvite, error) {
	var invite PendingInvite
	err := r.pool.QueryRow(ctx, `SELECT user_id, name, email, role_id, branch_id, setup_token, created_at
FROM users WHERE setup_token = $1 AND status = 'Pending'`, token).
		Scan(&invite.UserID, &invite.Name, &invite.Email, &invite.RoleID, &invite.BranchID, &invite.SetupToken, &invite.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invite, nil
}

func (r *PGRepository) ActivateAccount(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users
SET password_hash = $2, status = 'Active', setup_token = NULL, updated_at = NOW()
WHERE user_id = $1 AND status = 'Pending'`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET reset_token = $2, reset_token_expires = $3, updated_at = NOW()
WHERE user_id = $1`, userID, token, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) FindByResetToken(ctx context.Context, token string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+`
FROM users u JOIN roles r ON r.id = u.role_id
WHERE u.reset_token = $1 AND u.reset_token_expires > NOW()`, token)
	return scanAccount(row)
}

func (r *PGRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users
SET password_hash = $2, reset_token = NULL, reset_token_expires = NULL, updated_at = NOW()
WHERE user_id = $1`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	// Pending invitees have no hash yet; they stay scannable and fail the
	// bcrypt compare.
	var hash *string
	err := row.Scan(&acc.UserID, &acc.Name, &acc.Email, &hash, &acc.RoleID, &acc.RoleName, &acc.BranchID, &acc.Status, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if hash != nil {
		acc.PasswordHash = *hash
	}
	return &acc, nil
}

var _ Repository = (*PGRepository)(nil)

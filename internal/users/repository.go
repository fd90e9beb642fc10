package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-ims/lumina/internal/shared"
)

// ErrEmailTaken indicates the email is already registered to another account.
var ErrEmailTaken = errors.New("email already registered")

// Repository abstracts user persistence so the service can be tested
// against an in-memory fake.
type Repository interface {
	ListByBranch(ctx context.Context, branchID int64) ([]User, error)
	ListAll(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, userID string) (*User, error)
	Create(ctx context.Context, userID, passwordHash string, in CreateUserInput) error
	Update(ctx context.Context, userID string, in UpdateUserInput) (*User, error)
	Delete(ctx context.Context, userID string) error
	ListRoles(ctx context.Context) ([]Role, error)
}

const userColumns = `
	u.user_id, u.name, u.email, u.role_id, r.role_name,
	u.branch_id, b.branch_name, u.status, u.created_at, u.updated_at`

const userFrom = `
	FROM users u
	JOIN roles r ON r.id = u.role_id
	LEFT JOIN branches b ON b.id = u.branch_id`

// PGRepository is the Postgres-backed implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListByBranch(ctx context.Context, branchID int64) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+userFrom+` WHERE u.branch_id = $1 ORDER BY u.name`, branchID)
	if err != nil {
		return nil, fmt.Errorf("list users by branch: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *PGRepository) ListAll(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+userFrom+` ORDER BY u.name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *PGRepository) GetByID(ctx context.Context, userID string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+userFrom+` WHERE u.user_id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PGRepository) Create(ctx context.Context, userID, passwordHash string, in CreateUserInput) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (user_id, name, email, password_hash, role_id, branch_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, in.Name, in.Email, passwordHash, in.RoleID, in.BranchID, in.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *PGRepository) Update(ctx context.Context, userID string, in UpdateUserInput) (*User, error) {
	sets := []string{"updated_at = now()"}
	args := []any{userID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Email != nil {
		add("email", *in.Email)
	}
	if in.RoleID != nil {
		add("role_id", *in.RoleID)
	}
	if in.BranchID != nil {
		add("branch_id", *in.BranchID)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE user_id = $1`, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.GetByID(ctx, userID)
}

func (r *PGRepository) Delete(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, role_name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(
		&u.UserID, &u.Name, &u.Email, &u.RoleID, &u.RoleName,
		&u.BranchID, &u.BranchName, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)

package users

import "time"

// Role identifiers as stored in the roles table.
const (
	RoleSuperAdmin    int64 = 1
	RoleBranchManager int64 = 2
	RoleAdmin         int64 = 3
)

// User is an account row joined with its role and branch names.
type User struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	RoleID     int64     `json:"role_id"`
	RoleName   string    `json:"role_name"`
	BranchID   *int64    `json:"branch_id"`
	BranchName *string   `json:"branch_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Role is a selectable role row.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateUserInput carries fields for direct admin creation.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	RoleID   int64
	BranchID *int64
	Status   string
}

// UpdateUserInput carries the mutable fields. Nil means unchanged.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	RoleID   *int64
	BranchID *int64
	Status   *string
}

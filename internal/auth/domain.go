package auth

import "time"

// Account represents a user row as the auth module sees it.
type Account struct {
	UserID       string
	Name         string
	Email        string
	PasswordHash string
	RoleID       int64
	RoleName     string
	BranchID     *int64
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the account may log in.
func (a Account) Active() bool {
	return a.Status == "Active"
}

// PendingInvite is a not-yet-activated account waiting for setup.
type PendingInvite struct {
	UserID     string
	Name       string
	Email      string
	RoleID     int64
	BranchID   *int64
	SetupToken string
	CreatedAt  time.Time
}

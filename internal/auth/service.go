package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumina-ims/lumina/internal/shared"
)

// ErrEmailTaken indicates the invite email already exists.
var ErrEmailTaken = errors.New("email already registered")

// ErrTokenInvalid indicates a setup or reset token is unknown or expired.
var ErrTokenInvalid = errors.New("token is invalid or expired")

const resetTokenTTL = time.Hour

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions *SessionStore
	audit    *shared.AuditLogger
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *SessionStore, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, sessions: sessions, audit: audit}
}

// Authenticate validates email/password credentials. Only bcrypt hashes are
// accepted; rows without a valid hash always fail closed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !acc.Active() {
		return nil, shared.ErrInactiveAccount
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      acc.UserID,
			Action:      shared.ActionUserLogin,
			Description: fmt.Sprintf("User %s (%s) logged in successfully", acc.Name, acc.Email),
			EntityType:  "user",
			EntityID:    acc.UserID,
			Meta: map[string]any{
				"user_role":    acc.RoleName,
				"branch_id":    acc.BranchID,
				"login_method": "email_password",
			},
		})
	}
	return acc, nil
}

// IssueSession records the login in the session store and returns its token.
func (s *Service) IssueSession(ctx context.Context, userID, ip, ua string) (string, error) {
	if s.sessions == nil {
		return "", nil
	}
	return s.sessions.Issue(ctx, userID, ip, ua)
}

// ValidateSession re-checks the user row backing a client-side session.
func (s *Service) ValidateSession(ctx context.Context, userID string) error {
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !acc.Active() {
		return shared.ErrInactiveAccount
	}
	return nil
}

// Invite creates a pending account with a one-time setup token.
func (s *Service) Invite(ctx context.Context, name, email string, roleID int64, branchID *int64) (*PendingInvite, error) {
	invite := PendingInvite{
		UserID:     uuid.NewString(),
		Name:       name,
		Email:      email,
		RoleID:     roleID,
		BranchID:   branchID,
		SetupToken: uuid.NewString(),
	}
	if err := s.repo.CreatePending(ctx, invite); err != nil {
		return nil, err
	}
	return &invite, nil
}

// LookupInvite resolves a setup token.
func (s *Service) LookupInvite(ctx context.Context, token string) (*PendingInvite, error) {
	invite, err := s.repo.FindBySetupToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return invite, nil
}

// CompleteSetup activates a pending account with its chosen password.
func (s *Service) CompleteSetup(ctx context.Context, token, password string) (*PendingInvite, error) {
	invite, err := s.LookupInvite(ctx, token)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ActivateAccount(ctx, invite.UserID, string(hash)); err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      invite.UserID,
			Action:      shared.ActionUserSetupDone,
			Description: fmt.Sprintf("User %s (%s) completed account setup", invite.Name, invite.Email),
			EntityType:  "user",
			EntityID:    invite.UserID,
		})
	}
	return invite, nil
}

// RequestPasswordReset issues a reset token for the account, when it exists.
// The token is returned to the caller; delivering it is out of scope here.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.repo.SetResetToken(ctx, acc.UserID, token, time.Now().Add(resetTokenTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// LookupResetToken resolves a reset token to its account.
func (s *Service) LookupResetToken(ctx context.Context, token string) (*Account, error) {
	acc, err := s.repo.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return acc, nil
}

// ResetPassword replaces the password for a valid reset token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	acc, err := s.LookupResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, acc.UserID, string(hash))
}

package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumina-ims/lumina/internal/shared"
)

// Service wraps user management rules.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListByBranch returns the staff assigned to a branch.
func (s *Service) ListByBranch(ctx context.Context, branchID int64) ([]User, error) {
	return s.repo.ListByBranch(ctx, branchID)
}

// ListAll returns every account, Super Admin view.
func (s *Service) ListAll(ctx context.Context) ([]User, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// Create registers an active account directly, bypassing the invite flow.
func (s *Service) Create(ctx context.Context, actorID string, in CreateUserInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = "Active"
	}
	userID := uuid.NewString()
	if err := s.repo.Create(ctx, userID, string(hash), in); err != nil {
		return nil, err
	}
	created, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionUserCreated,
			Description: fmt.Sprintf("Created user %s (%s)", created.Name, created.Email),
			EntityType:  "user",
			EntityID:    created.UserID,
			NewValues:   map[string]any{"name": created.Name, "email": created.Email, "role_id": created.RoleID, "branch_id": created.BranchID},
		})
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, actorID, userID string, in UpdateUserInput) (*User, error) {
	before, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionUserUpdated,
			Description: fmt.Sprintf("Updated user %s (%s)", updated.Name, updated.Email),
			EntityType:  "user",
			EntityID:    userID,
			OldValues:   map[string]any{"name": before.Name, "email": before.Email, "role_id": before.RoleID, "branch_id": before.BranchID, "status": before.Status},
			NewValues:   map[string]any{"name": updated.Name, "email": updated.Email, "role_id": updated.RoleID, "branch_id": updated.BranchID, "status": updated.Status},
		})
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actorID, userID string) error {
	before, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionUserDeleted,
			Description: fmt.Sprintf("Deleted user %s (%s)", before.Name, before.Email),
			EntityType:  "user",
			EntityID:    userID,
			OldValues:   map[string]any{"name": before.Name, "email": before.Email, "role_id": before.RoleID},
		})
	}
	return nil
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

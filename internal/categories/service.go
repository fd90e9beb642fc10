package categories

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumina-ims/lumina/internal/shared"
)

// ErrNameRequired is returned when the name is empty after normalization.
var ErrNameRequired = errors.New("category name is required")

// ErrInUse is returned when a category still has products attached. Count
// carries how many.
type ErrInUse struct {
	Count int64
}

func (e ErrInUse) Error() string {
	return fmt.Sprintf("category is being used by %d product(s)", e.Count)
}

// Service wraps category business rules.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, actorID, name string) (*Category, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, ErrNameRequired
	}
	c, err := s.repo.Create(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionCategoryCreated,
			Description: fmt.Sprintf("Created category %s", c.Name),
			EntityType:  "category",
			EntityID:    fmt.Sprint(c.ID),
			NewValues:   map[string]any{"category_name": c.Name},
		})
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, actorID string, id int64, name string) (*Category, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, ErrNameRequired
	}
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Update(ctx, id, normalized)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionCategoryUpdated,
			Description: fmt.Sprintf("Renamed category %s to %s", before.Name, c.Name),
			EntityType:  "category",
			EntityID:    fmt.Sprint(id),
			OldValues:   map[string]any{"category_name": before.Name},
			NewValues:   map[string]any{"category_name": c.Name},
		})
	}
	return c, nil
}

// Delete removes a category unless products still reference it.
func (s *Service) Delete(ctx context.Context, actorID string, id int64) error {
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrInUse{Count: count}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionCategoryDeleted,
			Description: fmt.Sprintf("Deleted category %s", before.Name),
			EntityType:  "category",
			EntityID:    fmt.Sprint(id),
			OldValues:   map[string]any{"category_name": before.Name},
		})
	}
	return nil
}

package branches

import (
	"context"
	"fmt"
	"sort"

	"github.com/lumina-ims/lumina/internal/shared"
)

// Service wraps branch business rules.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context) ([]Branch, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Branch, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, actorID string, in BranchInput) (*Branch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	b, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionBranchCreated,
			Description: fmt.Sprintf("Created branch %s", b.Name),
			EntityType:  "branch",
			EntityID:    fmt.Sprint(b.ID),
			NewValues:   map[string]any{"branch_name": b.Name, "location": b.Location},
		})
	}
	return b, nil
}

func (s *Service) Update(ctx context.Context, actorID string, id int64, in BranchInput) (*Branch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionBranchUpdated,
			Description: fmt.Sprintf("Updated branch %s", b.Name),
			EntityType:  "branch",
			EntityID:    fmt.Sprint(id),
			OldValues:   map[string]any{"branch_name": before.Name, "location": before.Location},
			NewValues:   map[string]any{"branch_name": b.Name, "location": b.Location},
		})
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, actorID string, id int64) error {
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.TryRecord(ctx, shared.AuditLog{
			UserID:      actorID,
			Action:      shared.ActionBranchDeleted,
			Description: fmt.Sprintf("Deleted branch %s", before.Name),
			EntityType:  "branch",
			EntityID:    fmt.Sprint(id),
			OldValues:   map[string]any{"branch_name": before.Name, "location": before.Location},
		})
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context, branchID int64) ([]BranchProduct, error) {
	if _, err := s.repo.GetByID(ctx, branchID); err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, branchID)
}

// NearbyBranch pairs a branch with its distance from a reference branch.
type NearbyBranch struct {
	Branch
	DistanceKm float64 `json:"distance_km"`
}

// Nearest ranks the other branches with coordinates by distance from the
// given branch. Branches without coordinates are skipped.
func (s *Service) Nearest(ctx context.Context, branchID int64) ([]NearbyBranch, error) {
	origin, err := s.repo.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if origin.Latitude == nil {
		return nil, ErrCoordinatePair
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []NearbyBranch
	for _, b := range all {
		if b.ID == branchID || b.Latitude == nil {
			continue
		}
		out = append(out, NearbyBranch{
			Branch:     b,
			DistanceKm: Haversine(*origin.Latitude, *origin.Longitude, *b.Latitude, *b.Longitude),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

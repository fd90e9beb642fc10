package notifications

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrMarkReadInput is returned when neither ids nor a link is supplied.
var ErrMarkReadInput = errors.New("either ids or link must be provided")

// Service persists notifications and publishes them to the per-user redis
// channel for connected clients. Polling the REST endpoints remains the
// fallback.
type Service struct {
	repo  Repository
	redis *redis.Client
}

func NewService(repo Repository, rdb *redis.Client) *Service {
	return &Service{repo: repo, redis: rdb}
}

// Channel returns the pub/sub channel name for a user.
func Channel(userID string) string {
	return "notify:user:" + userID
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	if in.Type == "" {
		in.Type = "info"
	}
	n, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, n)
	return n, nil
}

// Notify is the compact form used by other services.
func (s *Service) Notify(ctx context.Context, userID, title, message, link, typ string) error {
	_, err := s.Create(ctx, CreateInput{
		UserID: userID, Title: title, Message: message, Link: link, Type: typ,
	})
	return err
}

func (s *Service) MarkRead(ctx context.Context, in MarkReadInput) (int64, error) {
	if len(in.IDs) == 0 && in.Link == "" {
		return 0, ErrMarkReadInput
	}
	return s.repo.MarkRead(ctx, in)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) publish(ctx context.Context, n *Notification) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	_ = s.redis.Publish(ctx, Channel(n.UserID), payload).Err()
}

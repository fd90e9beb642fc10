package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionRecord is what the store keeps per issued login.
type SessionRecord struct {
	UserID    string    `json:"user_id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"ua"`
	IssuedAt  time.Time `json:"issued_at"`
}

// SessionStore tracks issued login sessions in Redis so a login can be
// invalidated server-side before its client-side cache expires.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore with an explicit TTL.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Issue creates a session record and returns its token.
func (s *SessionStore) Issue(ctx context.Context, userID, ip, ua string) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("session store not initialised")
	}
	token := uuid.NewString()
	payload, err := json.Marshal(SessionRecord{UserID: userID, IP: ip, UserAgent: ua, IssuedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Get returns the record for a token, or nil when expired or unknown.
func (s *SessionStore) Get(ctx context.Context, token string) (*SessionRecord, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("session store not initialised")
	}
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Revoke deletes a session token.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.key(token)).Err()
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) key(token string) string {
	return "session:" + token
}

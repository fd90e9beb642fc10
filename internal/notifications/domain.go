package notifications

import "time"

// Notification is one in-app message for a user.
type Notification struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Link      string         `json:"link,omitempty"`
	Type      string         `json:"type"`
	Read      bool           `json:"read"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateInput carries the fields for a new notification.
type CreateInput struct {
	UserID   string
	Title    string
	Message  string
	Link     string
	Type     string
	Metadata map[string]any
}

// MarkReadInput marks by explicit IDs or by link, whichever is set.
type MarkReadInput struct {
	UserID string
	IDs    []int64
	Link   string
}

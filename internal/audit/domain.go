package audit

import (
	"strings"
	"time"
)

// Entry is an audit log row enriched for the API.
type Entry struct {
	ID          int64          `json:"id"`
	UserID      *string        `json:"user_id"`
	UserName    string         `json:"user_name"`
	UserEmail   string         `json:"user_email"`
	RoleName    string         `json:"role_name"`
	BranchName  string         `json:"branch_name"`
	Action      string         `json:"action"`
	Category    string         `json:"action_category"`
	Severity    string         `json:"severity_level"`
	Description string         `json:"description"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	OldValues   map[string]any `json:"old_values,omitempty"`
	NewValues   map[string]any `json:"new_values,omitempty"`
	OccurredAt  time.Time      `json:"timestamp"`
}

// Filter narrows a log query.
type Filter struct {
	Action     string
	UserID     string
	EntityType string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Limit      int
}

// Stats summarises activity over a window.
type Stats struct {
	TotalActions  int64            `json:"total_actions"`
	ActionsByType map[string]int64 `json:"actions_by_type"`
	ActionsByUser map[string]int64 `json:"actions_by_user"`
	Recent        []Entry          `json:"recent_activity"`
}

// Categorize maps an action to its display category.
func Categorize(action string) string {
	switch {
	case action == "INSERT":
		return "Create"
	case action == "UPDATE":
		return "Modify"
	case action == "DELETE":
		return "Delete"
	case strings.Contains(action, "LOGIN"):
		return "Authentication"
	case strings.Contains(action, "PRODUCT"):
		return "Product Management"
	case strings.Contains(action, "REQUEST"):
		return "Request Management"
	case strings.Contains(action, "USER"):
		return "User Management"
	case strings.Contains(action, "BRANCH"):
		return "Branch Management"
	case strings.Contains(action, "CATEGORY"):
		return "Category Management"
	default:
		return "Other"
	}
}

// Severity maps an action to a display severity level.
func Severity(action string) string {
	switch {
	case strings.Contains(action, "DELETE"), strings.Contains(action, "REMOVE"):
		return "High"
	case strings.Contains(action, "UPDATE"), strings.Contains(action, "EDIT"):
		return "Medium"
	case strings.Contains(action, "CREATE"), strings.Contains(action, "ADD"):
		return "Low"
	case strings.Contains(action, "LOGIN"), strings.Contains(action, "VIEW"):
		return "Info"
	default:
		return "Medium"
	}
}

// Enrich fills the derived display fields.
func (e *Entry) Enrich() {
	e.Category = Categorize(e.Action)
	e.Severity = Severity(e.Action)
	if e.UserName == "" {
		e.UserName = "Unknown"
	}
	if e.RoleName == "" {
		e.RoleName = "Unknown"
	}
}

// Package activity defines the tenant activity feed.
package activity

import "time"

// Type tags an activity entry.
type Type string

const (
	TypeStatusUpdate    Type = "status_update"
	TypeAssigneesUpdate Type = "assignees_update"
	TypeTaskUpdate      Type = "task_update"
	TypeMessage         Type = "message"
	TypeCommentary      Type = "commentary"
	TypeDocumentCreated Type = "document_created"
)

// DefaultLimit caps feed queries when no limit is given.
const DefaultLimit = 50

// Activity is an append-only feed entry.
type Activity struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Type         Type      `json:"type"`
	AgentID      string    `json:"agent_id"`
	Message      string    `json:"message"`
	TargetTaskID string    `json:"target_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	AgentName    string    `json:"agent_name,omitempty"`
	TargetTitle  string    `json:"target_title,omitempty"`
}

// Filter narrows a feed query. Empty fields match everything.
// Types is matched exactly; Group expands category names.
type Filter struct {
	AgentID string
	TaskID  string
	Types   []Type
	Limit   int
}

// Group expands a feed category name into the activity types it covers.
// Unknown names are treated as a single exact type.
func Group(name string) []Type {
	switch name {
	case "", "all":
		return nil
	case "tasks":
		return []Type{TypeStatusUpdate, TypeAssigneesUpdate, TypeTaskUpdate}
	case "comments":
		return []Type{TypeMessage, TypeCommentary}
	case "docs":
		return []Type{TypeDocumentCreated}
	case "status":
		return []Type{TypeStatusUpdate}
	default:
		return []Type{Type(name)}
	}
}

// EffectiveLimit returns the bounded limit for a query.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > DefaultLimit {
		return DefaultLimit
	}
	return f.Limit
}

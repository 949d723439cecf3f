// Package document defines deliverables attached to tasks.
package document

import (
	"fmt"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
)

// Type classifies a document. Other values are accepted as free-form.
type Type string

const (
	TypeMarkdown Type = "markdown"
	TypeCode     Type = "code"
	TypeImage    Type = "image"
	TypeNote     Type = "note"
	TypeDeliver  Type = "deliverable"
)

// Document is a piece of content produced by an agent.
type Document struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Type        Type      `json:"type"`
	Path        string    `json:"path,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
	CreatedByID string    `json:"created_by_agent_id,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRequest holds the fields needed to store a document.
type CreateRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Type        Type   `json:"type"`
	Path        string `json:"path,omitempty"`
	TaskID      string `json:"task_id,omitempty"`
	CreatedByID string `json:"agent_id,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if r.Type == "" {
		return fmt.Errorf("%w: type is required", domain.ErrValidation)
	}
	return nil
}

// Filter narrows a document listing. Empty fields match everything.
type Filter struct {
	Type    Type
	AgentID string
	TaskID  string
}

// WithContext bundles a document with the records it references.
type WithContext struct {
	Document     Document          `json:"document"`
	Agent        *agent.Agent      `json:"agent,omitempty"`
	Task         *task.Task        `json:"task,omitempty"`
	Message      *message.Message  `json:"message,omitempty"`
	Conversation []message.Message `json:"conversation,omitempty"`
}

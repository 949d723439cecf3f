// Package message defines task comments.
package message

import (
	"fmt"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain"
)

// Message is an append-only comment on a task.
type Message struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	TaskID        string    `json:"task_id"`
	FromAgentID   string    `json:"from_agent_id"`
	Content       string    `json:"content"`
	AttachmentIDs []string  `json:"attachment_ids"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateRequest holds the fields needed to post a message.
type CreateRequest struct {
	TaskID        string   `json:"task_id"`
	FromAgentID   string   `json:"agent_id"`
	Content       string   `json:"content"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.TaskID == "" {
		return fmt.Errorf("%w: task_id is required", domain.ErrValidation)
	}
	if r.FromAgentID == "" {
		return fmt.Errorf("%w: agent_id is required", domain.ErrValidation)
	}
	if r.Content == "" {
		return fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	return nil
}

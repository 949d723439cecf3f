// Package task defines the Task domain entity and its lifecycle.
package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain"
)

// Status represents the current state of a task.
type Status string

const (
	StatusInbox      Status = "inbox"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

// Statuses lists every status in board column order.
var Statuses = []Status{StatusInbox, StatusAssigned, StatusInProgress, StatusReview, StatusDone, StatusArchived}

// ErrInvalidTransition is returned when a status change is not in the transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists the statuses reachable from each status.
// Re-entering the current status is always permitted.
var transitions = map[Status][]Status{
	StatusInbox:      {StatusAssigned, StatusInProgress, StatusReview, StatusDone, StatusArchived},
	StatusAssigned:   {StatusInbox, StatusInProgress, StatusReview, StatusDone, StatusArchived},
	StatusInProgress: {StatusInbox, StatusAssigned, StatusReview, StatusDone, StatusArchived},
	StatusReview:     {StatusAssigned, StatusInProgress, StatusDone, StatusArchived},
	StatusDone:       {StatusInProgress, StatusReview, StatusArchived},
	StatusArchived:   {StatusInbox, StatusAssigned},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a status change and returns the target status.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// Task is a unit of work on the board, worked by human or automated agents.
type Task struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          Status     `json:"status"`
	AssigneeIDs     []string   `json:"assignee_ids"`
	Tags            []string   `json:"tags"`
	BorderColor     string     `json:"border_color,omitempty"`
	RunID           string     `json:"run_id,omitempty"`
	SessionKey      string     `json:"session_key,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	UsedCodingTools bool       `json:"used_coding_tools"`
	DispatchedAt    *time.Time `json:"dispatched_at,omitempty"`
	ContainerState  string     `json:"container_state,omitempty"`
	DispatchError   string     `json:"dispatch_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
}

// StartTime returns the reference time for elapsed-duration calculations.
func (t *Task) StartTime() time.Time {
	if t.StartedAt != nil {
		return *t.StartedAt
	}
	return t.CreatedAt
}

// CreateRequest holds the fields needed to create a new task.
type CreateRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	AssigneeIDs []string   `json:"assignee_ids,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	BorderColor string     `json:"border_color,omitempty"`
	RunID       string     `json:"run_id,omitempty"`
	SessionKey  string     `json:"session_key,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if r.Status == "" {
		r.Status = StatusInbox
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, r.Status)
	}
	return nil
}

// UpdateRequest holds the mutable content fields of a task. Nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	BorderColor *string  `json:"border_color,omitempty"`
}

// Empty reports whether the request changes nothing.
func (r *UpdateRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Tags == nil && r.BorderColor == nil
}

// Patch is a system-level partial update applied by the run processor and
// the dispatcher. Nil fields are left unchanged.
type Patch struct {
	Title           *string
	Description     *string
	Status          *Status
	RunID           *string
	StartedAt       *time.Time
	UsedCodingTools *bool
	DispatchedAt    *time.Time
	ContainerState  *string
	DispatchError   *string
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.RunID == nil &&
		p.StartedAt == nil && p.UsedCodingTools == nil && p.DispatchedAt == nil &&
		p.ContainerState == nil && p.DispatchError == nil
}

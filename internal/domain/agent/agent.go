// Package agent defines the Agent domain entity.
package agent

import (
	"fmt"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain"
)

// Status represents the availability of an agent.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// Level is an agent's seniority on the board.
type Level string

const (
	LevelLead       Level = "LEAD"
	LevelIntegrator Level = "INT"
	LevelSpecialist Level = "SPC"
)

// Kind distinguishes long-running agents from ones started per dispatch.
type Kind string

const (
	KindAlwaysOn Kind = "always-on"
	KindOnDemand Kind = "on-demand"
)

// ContainerState is the runtime state reported by the dispatcher.
type ContainerState string

const (
	ContainerStopped  ContainerState = "stopped"
	ContainerStarting ContainerState = "starting"
	ContainerRunning  ContainerState = "running"
	ContainerStopping ContainerState = "stopping"
)

var validContainerState = map[ContainerState]bool{
	ContainerStopped:  true,
	ContainerStarting: true,
	ContainerRunning:  true,
	ContainerStopping: true,
}

// Valid reports whether c is a known container state.
func (c ContainerState) Valid() bool { return validContainerState[c] }

var validStatus = map[Status]bool{StatusIdle: true, StatusActive: true, StatusBlocked: true}

var validLevel = map[Level]bool{LevelLead: true, LevelIntegrator: true, LevelSpecialist: true}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return validStatus[s] }

// Valid reports whether l is a known level.
func (l Level) Valid() bool { return validLevel[l] }

// Agent is a human or automated actor that can author messages and own tasks.
type Agent struct {
	ID             string         `json:"id"`
	TenantID       string         `json:"tenant_id"`
	Name           string         `json:"name"`
	Role           string         `json:"role"`
	Level          Level          `json:"level"`
	Status         Status         `json:"status"`
	Avatar         string         `json:"avatar"`
	SystemPrompt   string         `json:"system_prompt,omitempty"`
	Character      string         `json:"character,omitempty"`
	Lore           string         `json:"lore,omitempty"`
	Kind           Kind           `json:"agent_type,omitempty"`
	ContainerState ContainerState `json:"container_state,omitempty"`
	Capabilities   []string       `json:"capabilities,omitempty"`
	IsSystem       bool           `json:"is_system"`
	LastActiveAt   *time.Time     `json:"last_active_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CreateRequest holds the fields needed to create an agent.
type CreateRequest struct {
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	Level        Level    `json:"level"`
	Status       Status   `json:"status"`
	Avatar       string   `json:"avatar"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Character    string   `json:"character,omitempty"`
	Lore         string   `json:"lore,omitempty"`
	Kind         Kind     `json:"agent_type,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Validate checks required fields and fills defaults.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if r.Role == "" {
		return fmt.Errorf("%w: role is required", domain.ErrValidation)
	}
	if r.Level == "" {
		r.Level = LevelSpecialist
	}
	if r.Status == "" {
		r.Status = StatusIdle
	}
	if !r.Level.Valid() {
		return fmt.Errorf("%w: invalid level %q", domain.ErrValidation, r.Level)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, r.Status)
	}
	return nil
}

// UpdateRequest holds optional agent fields. Nil fields are left unchanged.
type UpdateRequest struct {
	Name         *string  `json:"name,omitempty"`
	Role         *string  `json:"role,omitempty"`
	Level        *Level   `json:"level,omitempty"`
	Status       *Status  `json:"status,omitempty"`
	Avatar       *string  `json:"avatar,omitempty"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
	Character    *string  `json:"character,omitempty"`
	Lore         *string  `json:"lore,omitempty"`
	Kind         *Kind    `json:"agent_type,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Validate rejects empty names and unknown levels.
func (r *UpdateRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
	}
	if r.Level != nil && !r.Level.Valid() {
		return fmt.Errorf("%w: invalid level %q", domain.ErrValidation, *r.Level)
	}
	if r.Status != nil && !r.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, *r.Status)
	}
	return nil
}

// SystemSpec describes the per-tenant system agent that authors automated updates.
type SystemSpec struct {
	Name   string
	Role   string
	Avatar string
}

// Request converts s into a CreateRequest for the system agent.
func (s SystemSpec) Request() CreateRequest {
	return CreateRequest{
		Name:   s.Name,
		Role:   s.Role,
		Level:  LevelSpecialist,
		Status: StatusActive,
		Avatar: s.Avatar,
	}
}

package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

// AgentService manages the tenant's agents.
type AgentService struct {
	store  database.Store
	system agent.SystemSpec
}

// NewAgentService creates a new AgentService.
func NewAgentService(store database.Store, system agent.SystemSpec) *AgentService {
	return &AgentService{store: store, system: system}
}

// List returns all agents of the tenant.
func (s *AgentService) List(ctx context.Context) ([]agent.Agent, error) {
	return s.store.ListAgents(ctx)
}

// Get returns an agent by ID.
func (s *AgentService) Get(ctx context.Context, id string) (*agent.Agent, error) {
	return s.store.GetAgent(ctx, id)
}

// Create registers a new agent. The system agent's name is reserved.
func (s *AgentService) Create(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Name == s.system.Name {
		return nil, fmt.Errorf("%w: agent name %q is reserved", domain.ErrConflict, req.Name)
	}
	return s.store.CreateAgent(ctx, req)
}

// Update applies a partial update and returns the stored agent.
func (s *AgentService) Update(ctx context.Context, id string, req agent.UpdateRequest) (*agent.Agent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAgent(ctx, id, req); err != nil {
		return nil, err
	}
	return s.store.GetAgent(ctx, id)
}

// UpdateStatus sets an agent's availability.
func (s *AgentService) UpdateStatus(ctx context.Context, id string, status agent.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, status)
	}
	return s.store.UpdateAgentStatus(ctx, id, status)
}

// Delete removes an agent. The system agent cannot be deleted.
func (s *AgentService) Delete(ctx context.Context, id string) error {
	a, err := s.store.GetAgent(ctx, id)
	if err != nil {
		return err
	}
	if a.IsSystem {
		return fmt.Errorf("%w: the system agent cannot be deleted", domain.ErrConflict)
	}
	return s.store.DeleteAgent(ctx, id)
}

// EnsureSystem returns the tenant's system agent, creating it when absent.
func (s *AgentService) EnsureSystem(ctx context.Context) (*agent.Agent, error) {
	return s.store.EnsureSystemAgent(ctx, s.system.Request())
}

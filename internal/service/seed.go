package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/missioncontrol/internal/domain/agent"
)

// DefaultAgents are created by Seed when missing.
var DefaultAgents = []agent.CreateRequest{
	{
		Name:   "Scrappy",
		Role:   "Squad Lead",
		Level:  agent.LevelLead,
		Status: agent.StatusIdle,
		Avatar: "🐕",
		Kind:   agent.KindAlwaysOn,
	},
	{
		Name:   "Researcher",
		Role:   "Research Specialist",
		Level:  agent.LevelSpecialist,
		Status: agent.StatusIdle,
		Avatar: "🔬",
		Kind:   agent.KindOnDemand,
	},
}

// Seed ensures the tenant has the system agent and the default agents.
// Agents that already exist by name are left untouched.
func (s *AgentService) Seed(ctx context.Context) ([]agent.Agent, error) {
	sys, err := s.EnsureSystem(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed system agent: %w", err)
	}
	existing, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(existing))
	for _, a := range existing {
		names[a.Name] = true
	}

	created := []agent.Agent{*sys}
	for _, req := range DefaultAgents {
		if names[req.Name] {
			continue
		}
		a, err := s.Create(ctx, req)
		if err != nil {
			return created, fmt.Errorf("seed agent %s: %w", req.Name, err)
		}
		slog.InfoContext(ctx, "seeded agent", "name", a.Name, "id", a.ID)
		created = append(created, *a)
	}
	return created, nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/middleware"
)

func TestAgentCreate(t *testing.T) {
	store := newMockStore()
	svc := NewAgentService(store, systemSpec)
	ctx := middleware.WithTenantID(context.Background(), defaultTenant)

	tests := []struct {
		name    string
		req     agent.CreateRequest
		wantErr error
	}{
		{"valid", agent.CreateRequest{Name: "Scrappy", Role: "Squad Lead", Level: agent.LevelLead}, nil},
		{"defaults level", agent.CreateRequest{Name: "Researcher", Role: "Research"}, nil},
		{"missing name", agent.CreateRequest{Role: "x"}, domain.ErrValidation},
		{"missing role", agent.CreateRequest{Name: "x"}, domain.ErrValidation},
		{"bad level", agent.CreateRequest{Name: "x", Role: "x", Level: "CEO"}, domain.ErrValidation},
		{"reserved name", agent.CreateRequest{Name: systemSpec.Name, Role: "x"}, domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Create(ctx, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.TenantID != defaultTenant || got.Level == "" || got.Status != agent.StatusIdle {
				t.Errorf("unexpected agent %+v", got)
			}
		})
	}
}

func TestAgentUpdate(t *testing.T) {
	store := newMockStore()
	svc := NewAgentService(store, systemSpec)
	ctx := middleware.WithTenantID(context.Background(), defaultTenant)
	a, err := svc.Create(ctx, agent.CreateRequest{Name: "Scrappy", Role: "Lead"})
	if err != nil {
		t.Fatal(err)
	}

	role := "Squad Lead"
	got, err := svc.Update(ctx, a.ID, agent.UpdateRequest{Role: &role})
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != role || got.Name != "Scrappy" {
		t.Errorf("unexpected agent %+v", got)
	}

	bad := agent.Level("boss")
	if _, err := svc.Update(ctx, a.ID, agent.UpdateRequest{Level: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	if err := svc.UpdateStatus(ctx, a.ID, agent.StatusActive); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateStatus(ctx, a.ID, "sleeping"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	other := middleware.WithTenantID(context.Background(), otherTenant)
	if _, err := svc.Get(other, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("agent must not be visible to other tenant, got %v", err)
	}
}

func TestAgentDeleteProtectsSystemAgent(t *testing.T) {
	store := newMockStore()
	svc := NewAgentService(store, systemSpec)
	ctx := middleware.WithTenantID(context.Background(), defaultTenant)

	sys, err := svc.EnsureSystem(ctx)
	if err != nil {
		t.Fatal(err)
	}
	again, err := svc.EnsureSystem(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sys.ID != again.ID || !sys.IsSystem {
		t.Errorf("EnsureSystem should be idempotent: %s vs %s", sys.ID, again.ID)
	}
	if err := svc.Delete(ctx, sys.ID); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict deleting system agent, got %v", err)
	}

	a, err := svc.Create(ctx, agent.CreateRequest{Name: "Temp", Role: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected deleted agent to be gone, got %v", err)
	}
}

func TestAgentSeedIsIdempotent(t *testing.T) {
	store := newMockStore()
	svc := NewAgentService(store, systemSpec)
	ctx := middleware.WithTenantID(context.Background(), defaultTenant)

	first, err := svc.Seed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1+len(DefaultAgents) {
		t.Fatalf("expected %d agents, got %d", 1+len(DefaultAgents), len(first))
	}
	if !first[0].IsSystem || first[0].Name != systemSpec.Name {
		t.Errorf("first seeded agent should be the system agent, got %+v", first[0])
	}

	second, err := svc.Seed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 {
		t.Errorf("reseed should only return the system agent, got %d", len(second))
	}
	all, _ := svc.List(ctx)
	if len(all) != 1+len(DefaultAgents) {
		t.Errorf("expected no duplicates, got %d agents", len(all))
	}
}

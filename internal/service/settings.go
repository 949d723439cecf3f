package service

import (
	"context"

	"github.com/Strob0t/missioncontrol/internal/domain/tenant"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

// SettingsService reads and updates per-tenant settings.
type SettingsService struct {
	store database.Store
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(store database.Store) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns the tenant's settings, or the defaults when none are stored.
func (s *SettingsService) Get(ctx context.Context) (*tenant.Settings, error) {
	return s.store.GetTenantSettings(ctx)
}

// Update applies the given changes.
func (s *SettingsService) Update(ctx context.Context, req tenant.UpdateRequest) (*tenant.Settings, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.UpdateTenantSettings(ctx, req)
}

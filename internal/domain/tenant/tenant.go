// Package tenant defines per-tenant settings.
package tenant

import (
	"fmt"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/usage"
)

// DefaultRetentionDays applies when a tenant has no settings row.
const DefaultRetentionDays = 30

// Settings holds tenant-scoped preferences.
type Settings struct {
	TenantID              string     `json:"tenant_id"`
	RetentionDays         int        `json:"retention_days"`
	DailyBudgetCents      int        `json:"daily_budget_cents"`
	OnboardingCompletedAt *time.Time `json:"onboarding_completed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// DefaultSettings returns the settings used for tenants without a stored row.
func DefaultSettings(tenantID string) Settings {
	return Settings{
		TenantID:         tenantID,
		RetentionDays:    DefaultRetentionDays,
		DailyBudgetCents: usage.DefaultDailyBudgetCents,
	}
}

// UpdateRequest holds optional settings changes.
type UpdateRequest struct {
	RetentionDays      *int `json:"retention_days,omitempty"`
	DailyBudgetCents   *int `json:"daily_budget_cents,omitempty"`
	CompleteOnboarding bool `json:"complete_onboarding,omitempty"`
}

// Validate rejects non-positive values.
func (r *UpdateRequest) Validate() error {
	if r.RetentionDays != nil && *r.RetentionDays < 1 {
		return fmt.Errorf("%w: retention_days must be >= 1", domain.ErrValidation)
	}
	if r.DailyBudgetCents != nil && *r.DailyBudgetCents < 0 {
		return fmt.Errorf("%w: daily_budget_cents must be >= 0", domain.ErrValidation)
	}
	return nil
}

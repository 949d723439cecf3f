package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/missioncontrol/internal/domain/tenant"
)

const settingsColumns = `tenant_id, retention_days, daily_budget_cents, onboarding_completed_at, created_at, updated_at`

func scanSettings(row scannable) (tenant.Settings, error) {
	var st tenant.Settings
	err := row.Scan(&st.TenantID, &st.RetentionDays, &st.DailyBudgetCents, &st.OnboardingCompletedAt,
		&st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// GetTenantSettings returns the stored settings, or defaults when the tenant
// has never saved any.
func (s *Store) GetTenantSettings(ctx context.Context) (*tenant.Settings, error) {
	tid := tenantFromCtx(ctx)
	row := s.pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM tenant_settings WHERE tenant_id = $1`, tid)
	st, err := scanSettings(row)
	if errors.Is(err, pgx.ErrNoRows) {
		def := tenant.DefaultSettings(tid)
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant settings: %w", err)
	}
	return &st, nil
}

func (s *Store) UpdateTenantSettings(ctx context.Context, req tenant.UpdateRequest) (*tenant.Settings, error) {
	def := tenant.DefaultSettings(tenantFromCtx(ctx))
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tenant_settings (tenant_id, retention_days, daily_budget_cents, onboarding_completed_at)
		VALUES ($1, COALESCE($2::int, $5::int), COALESCE($3::int, $6::int), CASE WHEN $4::bool THEN now() END)
		ON CONFLICT (tenant_id) DO UPDATE SET
			retention_days = COALESCE($2::int, tenant_settings.retention_days),
			daily_budget_cents = COALESCE($3::int, tenant_settings.daily_budget_cents),
			onboarding_completed_at = COALESCE(tenant_settings.onboarding_completed_at, EXCLUDED.onboarding_completed_at),
			updated_at = now()
		RETURNING `+settingsColumns,
		def.TenantID, req.RetentionDays, req.DailyBudgetCents, req.CompleteOnboarding,
		def.RetentionDays, def.DailyBudgetCents)
	st, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("update tenant settings: %w", err)
	}
	return &st, nil
}

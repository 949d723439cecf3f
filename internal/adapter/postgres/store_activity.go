package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain/activity"
)

func (s *Store) CreateActivity(ctx context.Context, a activity.Activity) (*activity.Activity, error) {
	a.TenantID = tenantFromCtx(ctx)
	var target *string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO activities (tenant_id, type, agent_id, message, target_task_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, target_task_id, created_at`,
		a.TenantID, a.Type, a.AgentID, a.Message, nullIfEmpty(a.TargetTaskID),
	).Scan(&a.ID, &target, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	a.TargetTaskID = derefString(target)
	return &a, nil
}

// ListActivities returns the newest activities first, joined with the
// authoring agent's name and the target task's title.
func (s *Store) ListActivities(ctx context.Context, f activity.Filter) ([]activity.Activity, error) {
	var c setClause
	where := "a.tenant_id = " + c.arg(tenantFromCtx(ctx))
	if f.AgentID != "" {
		where += " AND a.agent_id = " + c.arg(f.AgentID)
	}
	if f.TaskID != "" {
		where += " AND a.target_task_id = " + c.arg(f.TaskID)
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		where += " AND a.type = ANY(" + c.arg(types) + ")"
	}
	limit := c.arg(f.EffectiveLimit())

	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.tenant_id, a.type, a.agent_id, a.message, a.target_task_id, a.created_at,
			COALESCE(ag.name, ''), COALESCE(t.title, '')
		FROM activities a
		LEFT JOIN agents ag ON ag.id = a.agent_id
		LEFT JOIN tasks t ON t.id = a.target_task_id
		WHERE `+where+`
		ORDER BY a.created_at DESC
		LIMIT `+limit, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []activity.Activity
	for rows.Next() {
		var a activity.Activity
		var target *string
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Type, &a.AgentID, &a.Message, &target, &a.CreatedAt,
			&a.AgentName, &a.TargetTitle); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.TargetTaskID = derefString(target)
		out = append(out, a)
	}
	return orEmpty(out), rows.Err()
}

// PurgeExpiredActivities is not tenant-scoped: it applies every tenant's
// retention in a single statement.
func (s *Store) PurgeExpiredActivities(ctx context.Context, now time.Time, defaultDays int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM activities a
		WHERE a.created_at < $1::timestamptz - make_interval(days => COALESCE(
			(SELECT ts.retention_days FROM tenant_settings ts WHERE ts.tenant_id = a.tenant_id), $2::int))`,
		now, defaultDays)
	if err != nil {
		return 0, fmt.Errorf("purge activities: %w", err)
	}
	return tag.RowsAffected(), nil
}

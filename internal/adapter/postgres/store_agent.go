package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/missioncontrol/internal/domain/agent"
)

const agentColumns = `id, tenant_id, name, role, level, status, avatar, system_prompt, character, lore,
	agent_type, container_state, capabilities, is_system, last_active_at, created_at, updated_at`

func scanAgent(row scannable) (agent.Agent, error) {
	var a agent.Agent
	err := row.Scan(&a.ID, &a.TenantID, &a.Name, &a.Role, &a.Level, &a.Status, &a.Avatar, &a.SystemPrompt,
		&a.Character, &a.Lore, &a.Kind, &a.ContainerState, &a.Capabilities, &a.IsSystem, &a.LastActiveAt,
		&a.CreatedAt, &a.UpdatedAt)
	a.Capabilities = orEmpty(a.Capabilities)
	return a, err
}

func (s *Store) CreateAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO agents (tenant_id, name, role, level, status, avatar, system_prompt, character, lore, agent_type, capabilities)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+agentColumns,
		tenantFromCtx(ctx), req.Name, req.Role, req.Level, req.Status, req.Avatar, req.SystemPrompt,
		req.Character, req.Lore, req.Kind, pgTextArray(req.Capabilities),
	)
	a, err := scanAgent(row)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return &a, nil
}

func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx))
	a, err := scanAgent(row)
	if err != nil {
		return nil, notFoundWrap(err, "get agent %s", id)
	}
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE tenant_id = $1 ORDER BY created_at`, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return orEmpty(agents), rows.Err()
}

func (s *Store) UpdateAgent(ctx context.Context, id string, req agent.UpdateRequest) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE agents SET
			name = COALESCE($3, name),
			role = COALESCE($4, role),
			level = COALESCE($5, level),
			status = COALESCE($6, status),
			avatar = COALESCE($7, avatar),
			system_prompt = COALESCE($8, system_prompt),
			character = COALESCE($9, character),
			lore = COALESCE($10, lore),
			agent_type = COALESCE($11, agent_type),
			capabilities = COALESCE($12, capabilities),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx), req.Name, req.Role, req.Level, req.Status, req.Avatar, req.SystemPrompt,
		req.Character, req.Lore, req.Kind, req.Capabilities)
	return execExpectOne(tag, err, "update agent %s", id)
}

func (s *Store) UpdateAgentStatus(ctx context.Context, id string, status agent.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET status = $3, updated_at = now() WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx), status)
	return execExpectOne(tag, err, "update agent status %s", id)
}

// UpdateAgentContainerState records the runtime state reported by the
// dispatcher for every agent with the given name.
func (s *Store) UpdateAgentContainerState(ctx context.Context, name string, state agent.ContainerState) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE agents SET container_state = $3, last_active_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND name = $2`,
		tenantFromCtx(ctx), name, state)
	if err != nil {
		return fmt.Errorf("update agent container state %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundWrap(pgx.ErrNoRows, "update agent container state %s", name)
	}
	return nil
}

func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1 AND tenant_id = $2`, id, tenantFromCtx(ctx))
	return execExpectOne(tag, err, "delete agent %s", id)
}

// FindAgentByName returns the oldest agent with the given name in the tenant.
func (s *Store) FindAgentByName(ctx context.Context, name string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE tenant_id = $1 AND name = $2 ORDER BY created_at LIMIT 1`,
		tenantFromCtx(ctx), name)
	a, err := scanAgent(row)
	if err != nil {
		return nil, notFoundWrap(err, "find agent %q", name)
	}
	return &a, nil
}

// EnsureSystemAgent is a get-or-create on the partial unique index
// idx_agents_system. Losing an insert race resolves to the winner's row.
func (s *Store) EnsureSystemAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error) {
	tid := tenantFromCtx(ctx)
	if a, err := s.getSystemAgent(ctx, tid); err == nil {
		return a, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get system agent: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO agents (tenant_id, name, role, level, status, avatar, is_system)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (tenant_id) WHERE is_system DO NOTHING`,
		tid, req.Name, req.Role, req.Level, req.Status, req.Avatar)
	if err != nil {
		return nil, fmt.Errorf("insert system agent: %w", err)
	}

	a, err := s.getSystemAgent(ctx, tid)
	if err != nil {
		return nil, notFoundWrap(err, "ensure system agent")
	}
	return a, nil
}

func (s *Store) getSystemAgent(ctx context.Context, tenantID string) (*agent.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE tenant_id = $1 AND is_system`, tenantID)
	a, err := scanAgent(row)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Tasks ---

const taskColumns = `t.id, t.tenant_id, t.title, t.description, t.status, t.assignee_ids, t.tags, t.border_color,
	t.run_id, t.session_key, t.started_at, t.used_coding_tools, t.dispatched_at, t.container_state,
	t.dispatch_error, t.created_at, t.updated_at`

func scanTask(row scannable, extra ...any) (task.Task, error) {
	var t task.Task
	var runID, sessionKey *string
	dest := []any{
		&t.ID, &t.TenantID, &t.Title, &t.Description, &t.Status, &t.AssigneeIDs, &t.Tags, &t.BorderColor,
		&runID, &sessionKey, &t.StartedAt, &t.UsedCodingTools, &t.DispatchedAt, &t.ContainerState,
		&t.DispatchError, &t.CreatedAt, &t.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return t, err
	}
	t.RunID = derefString(runID)
	t.SessionKey = derefString(sessionKey)
	t.AssigneeIDs = orEmpty(t.AssigneeIDs)
	t.Tags = orEmpty(t.Tags)
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks AS t (tenant_id, title, description, status, assignee_ids, tags, border_color, run_id, session_key, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+taskColumns,
		tenantFromCtx(ctx), req.Title, req.Description, req.Status, pgTextArray(req.AssigneeIDs), pgTextArray(req.Tags),
		req.BorderColor, nullIfEmpty(req.RunID), nullIfEmpty(req.SessionKey), req.StartedAt,
	)
	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1 AND t.tenant_id = $2`,
		id, tenantFromCtx(ctx))
	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}
	return &t, nil
}

// GetTaskUnscoped looks a task up by ID across tenants.
func (s *Store) GetTaskUnscoped(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}
	return &t, nil
}

// FindTaskByRunID returns the most recent task bound to runID across tenants.
func (s *Store) FindTaskByRunID(ctx context.Context, runID string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.run_id = $1 ORDER BY t.created_at DESC LIMIT 1`, runID)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "find task by run %s", runID)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	return s.listTasks(ctx, `t.tenant_id = $1`)
}

// ListDispatchableTasks returns assigned tasks the dispatcher has not picked up yet.
func (s *Store) ListDispatchableTasks(ctx context.Context) ([]task.Task, error) {
	return s.listTasks(ctx, `t.tenant_id = $1 AND t.status = 'assigned' AND t.dispatched_at IS NULL`)
}

func (s *Store) listTasks(ctx context.Context, where string) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`, (SELECT MAX(m.created_at) FROM messages m WHERE m.task_id = t.id)
		FROM tasks t WHERE `+where+`
		ORDER BY t.created_at DESC`, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var lastMessage *time.Time
		t, err := scanTask(rows, &lastMessage)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.LastMessageAt = lastMessage
		tasks = append(tasks, t)
	}
	return orEmpty(tasks), rows.Err()
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status task.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $3, updated_at = now() WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx), status)
	return execExpectOne(tag, err, "update task status %s", id)
}

func (s *Store) UpdateTaskAssignees(ctx context.Context, id string, assigneeIDs []string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET assignee_ids = $3, updated_at = now() WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx), pgTextArray(assigneeIDs))
	return execExpectOne(tag, err, "update task assignees %s", id)
}

func (s *Store) UpdateTask(ctx context.Context, id string, req task.UpdateRequest) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			tags = COALESCE($5, tags),
			border_color = COALESCE($6, border_color),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx), req.Title, req.Description, req.Tags, req.BorderColor)
	return execExpectOne(tag, err, "update task %s", id)
}

// PatchTask applies a system patch. It is tenant-scoped like every other
// task write; the run processor scopes ctx to the task's tenant first.
func (s *Store) PatchTask(ctx context.Context, id string, p task.Patch) error {
	if p.Empty() {
		return nil
	}
	var c setClause
	if p.Title != nil {
		c.add("title", *p.Title)
	}
	if p.Description != nil {
		c.add("description", *p.Description)
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("patch task %s: %w: invalid status %q", id, domain.ErrValidation, *p.Status)
		}
		c.add("status", *p.Status)
	}
	if p.RunID != nil {
		c.add("run_id", nullIfEmpty(*p.RunID))
	}
	if p.StartedAt != nil {
		c.add("started_at", *p.StartedAt)
	}
	if p.UsedCodingTools != nil {
		c.add("used_coding_tools", *p.UsedCodingTools)
	}
	if p.DispatchedAt != nil {
		c.add("dispatched_at", *p.DispatchedAt)
	}
	if p.ContainerState != nil {
		c.add("container_state", *p.ContainerState)
	}
	if p.DispatchError != nil {
		c.add("dispatch_error", *p.DispatchError)
	}
	idArg := c.arg(id)
	tenantArg := c.arg(tenantFromCtx(ctx))

	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET `+c.String()+`, updated_at = now() WHERE id = `+idArg+` AND tenant_id = `+tenantArg,
		c.args...)
	return execExpectOne(tag, err, "patch task %s", id)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/missioncontrol/internal/domain/message"
)

const messageColumns = `id, tenant_id, task_id, from_agent_id, content, attachment_ids, created_at`

func scanMessage(row scannable) (message.Message, error) {
	var m message.Message
	err := row.Scan(&m.ID, &m.TenantID, &m.TaskID, &m.FromAgentID, &m.Content, &m.AttachmentIDs, &m.CreatedAt)
	m.AttachmentIDs = orEmpty(m.AttachmentIDs)
	return m, err
}

func (s *Store) CreateMessage(ctx context.Context, req message.CreateRequest) (*message.Message, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO messages (tenant_id, task_id, from_agent_id, content, attachment_ids)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+messageColumns,
		tenantFromCtx(ctx), req.TaskID, req.FromAgentID, req.Content, pgTextArray(req.AttachmentIDs))
	m, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &m, nil
}

func (s *Store) GetMessage(ctx context.Context, id string) (*message.Message, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx))
	m, err := scanMessage(row)
	if err != nil {
		return nil, notFoundWrap(err, "get message %s", id)
	}
	return &m, nil
}

// ListMessages returns a task's messages oldest first.
func (s *Store) ListMessages(ctx context.Context, taskID string) ([]message.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE task_id = $1 AND tenant_id = $2 ORDER BY created_at`, taskID, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return orEmpty(msgs), rows.Err()
}

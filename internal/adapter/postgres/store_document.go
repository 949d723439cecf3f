package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/missioncontrol/internal/domain/document"
)

const documentColumns = `id, tenant_id, title, content, type, path, task_id, created_by_agent_id, message_id, created_at`

func scanDocument(row scannable) (document.Document, error) {
	var d document.Document
	var taskID, createdBy, messageID *string
	err := row.Scan(&d.ID, &d.TenantID, &d.Title, &d.Content, &d.Type, &d.Path, &taskID, &createdBy, &messageID, &d.CreatedAt)
	d.TaskID = derefString(taskID)
	d.CreatedByID = derefString(createdBy)
	d.MessageID = derefString(messageID)
	return d, err
}

func (s *Store) CreateDocument(ctx context.Context, req document.CreateRequest) (*document.Document, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (tenant_id, title, content, type, path, task_id, created_by_agent_id, message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+documentColumns,
		tenantFromCtx(ctx), req.Title, req.Content, req.Type, req.Path,
		nullIfEmpty(req.TaskID), nullIfEmpty(req.CreatedByID), nullIfEmpty(req.MessageID))
	d, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return &d, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx))
	d, err := scanDocument(row)
	if err != nil {
		return nil, notFoundWrap(err, "get document %s", id)
	}
	return &d, nil
}

// ListDocuments returns the newest documents first.
func (s *Store) ListDocuments(ctx context.Context, f document.Filter) ([]document.Document, error) {
	var c setClause
	where := "tenant_id = " + c.arg(tenantFromCtx(ctx))
	if f.Type != "" {
		where += " AND type = " + c.arg(f.Type)
	}
	if f.AgentID != "" {
		where += " AND created_by_agent_id = " + c.arg(f.AgentID)
	}
	if f.TaskID != "" {
		where += " AND task_id = " + c.arg(f.TaskID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE `+where+` ORDER BY created_at DESC`, c.args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return orEmpty(docs), rows.Err()
}

func (s *Store) CountDocuments(ctx context.Context, taskID string, typ document.Type) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE tenant_id = $1 AND task_id = $2 AND type = $3`,
		tenantFromCtx(ctx), taskID, typ).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/document"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
	"github.com/Strob0t/missioncontrol/internal/port/broadcast"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

// DocumentService stores agent deliverables.
type DocumentService struct {
	store database.Store
	feed  feed
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(store database.Store, bc broadcast.Broadcaster) *DocumentService {
	return &DocumentService{store: store, feed: newFeed(store, bc)}
}

// Create stores a document authored by an agent of the tenant. Referenced
// task and message must belong to the tenant too.
func (s *DocumentService) Create(ctx context.Context, req document.CreateRequest) (*document.Document, error) {
	if req.Type == "" {
		req.Type = document.TypeMarkdown
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.CreatedByID == "" {
		return nil, fmt.Errorf("%w: agent_id is required", domain.ErrValidation)
	}
	if _, err := s.store.GetAgent(ctx, req.CreatedByID); err != nil {
		return nil, fmt.Errorf("author: %w", err)
	}
	var t *task.Task
	if req.TaskID != "" {
		var err error
		if t, err = s.store.GetTask(ctx, req.TaskID); err != nil {
			return nil, err
		}
	}
	if req.MessageID != "" {
		if _, err := s.store.GetMessage(ctx, req.MessageID); err != nil {
			return nil, fmt.Errorf("message: %w", err)
		}
	}

	d, err := s.store.CreateDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	s.feed.bc.BroadcastEvent(ctx, broadcast.EventDocument, d)

	msg := fmt.Sprintf("created document \"%s\"", d.Title)
	if t != nil {
		msg += fmt.Sprintf(" for \"%s\"", t.Title)
	}
	return d, s.feed.record(ctx, activity.TypeDocumentCreated, req.CreatedByID, req.TaskID, msg)
}

// List returns the tenant's documents matching f.
func (s *DocumentService) List(ctx context.Context, f document.Filter) ([]document.Document, error) {
	return s.store.ListDocuments(ctx, f)
}

// ListByTask returns the documents attached to a task.
func (s *DocumentService) ListByTask(ctx context.Context, taskID string) ([]document.Document, error) {
	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, document.Filter{TaskID: taskID})
}

// GetWithContext returns a document with its author, task, source message
// and the task's conversation. References that no longer resolve are omitted.
func (s *DocumentService) GetWithContext(ctx context.Context, id string) (*document.WithContext, error) {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &document.WithContext{Document: *d}

	if d.CreatedByID != "" {
		a, err := s.store.GetAgent(ctx, d.CreatedByID)
		if err := keepMissing(err); err != nil {
			return nil, err
		}
		out.Agent = a
	}
	if d.MessageID != "" {
		m, err := s.store.GetMessage(ctx, d.MessageID)
		if err := keepMissing(err); err != nil {
			return nil, err
		}
		out.Message = m
	}
	if d.TaskID != "" {
		t, err := s.store.GetTask(ctx, d.TaskID)
		if err := keepMissing(err); err != nil {
			return nil, err
		}
		if t != nil {
			out.Task = t
			if out.Conversation, err = s.store.ListMessages(ctx, d.TaskID); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// keepMissing drops not-found errors so dangling references resolve to nil.
func keepMissing(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/port/broadcast"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

// MessageService posts and lists task comments.
type MessageService struct {
	store database.Store
	feed  feed
}

// NewMessageService creates a new MessageService.
func NewMessageService(store database.Store, bc broadcast.Broadcaster) *MessageService {
	return &MessageService{store: store, feed: newFeed(store, bc)}
}

// Send posts a comment. The task, author and every attachment must belong to
// the tenant.
func (s *MessageService) Send(ctx context.Context, req message.CreateRequest) (*message.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetAgent(ctx, req.FromAgentID); err != nil {
		return nil, fmt.Errorf("author: %w", err)
	}
	for _, id := range req.AttachmentIDs {
		if _, err := s.store.GetDocument(ctx, id); err != nil {
			return nil, fmt.Errorf("attachment %s: %w", id, err)
		}
	}

	m, err := s.feed.post(ctx, req)
	if err != nil {
		return nil, err
	}
	return m, s.feed.record(ctx, activity.TypeMessage, req.FromAgentID, t.ID,
		fmt.Sprintf("commented on \"%s\"", t.Title))
}

// List returns a task's messages, oldest first.
func (s *MessageService) List(ctx context.Context, taskID string) ([]message.Message, error) {
	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, taskID)
}

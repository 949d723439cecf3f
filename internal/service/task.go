package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
	"github.com/Strob0t/missioncontrol/internal/port/broadcast"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

// TaskService handles task board operations performed by agents.
// Every mutation names the acting agent, which must belong to the tenant.
type TaskService struct {
	store database.Store
	feed  feed
	now   func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(store database.Store, bc broadcast.Broadcaster) *TaskService {
	return &TaskService{store: store, feed: newFeed(store, bc), now: time.Now}
}

// List returns the tenant's tasks with their last message time.
func (s *TaskService) List(ctx context.Context) ([]task.Task, error) {
	return s.store.ListTasks(ctx)
}

// Get returns a task by ID.
func (s *TaskService) Get(ctx context.Context, id string) (*task.Task, error) {
	return s.store.GetTask(ctx, id)
}

// Create adds a task to the board.
func (s *TaskService) Create(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.CreateTask(ctx, req)
	if err != nil {
		return nil, err
	}
	s.feed.taskChanged(ctx, t)
	return t, nil
}

// UpdateStatus moves a task through the transition table.
func (s *TaskService) UpdateStatus(ctx context.Context, id string, status task.Status, actorID string) (*task.Task, error) {
	t, err := s.loadForActor(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	next, err := task.Transition(t.Status, status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := s.store.UpdateTaskStatus(ctx, id, next); err != nil {
		return nil, err
	}
	t.Status = next
	s.feed.taskChanged(ctx, t)
	return t, s.feed.record(ctx, activity.TypeStatusUpdate, actorID, id,
		fmt.Sprintf("changed status of \"%s\" to %s", t.Title, next))
}

// UpdateAssignees replaces the assignees. Every assignee must belong to the tenant.
func (s *TaskService) UpdateAssignees(ctx context.Context, id string, assigneeIDs []string, actorID string) (*task.Task, error) {
	t, err := s.loadForActor(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	for _, aid := range assigneeIDs {
		if _, err := s.store.GetAgent(ctx, aid); err != nil {
			return nil, fmt.Errorf("assignee %s: %w", aid, err)
		}
	}
	if err := s.store.UpdateTaskAssignees(ctx, id, assigneeIDs); err != nil {
		return nil, err
	}
	t.AssigneeIDs = assigneeIDs
	s.feed.taskChanged(ctx, t)
	return t, s.feed.record(ctx, activity.TypeAssigneesUpdate, actorID, id,
		fmt.Sprintf("updated assignees for \"%s\"", t.Title))
}

// Update changes title, description, tags or border color. An activity names
// the changed content fields.
func (s *TaskService) Update(ctx context.Context, id string, req task.UpdateRequest, actorID string) (*task.Task, error) {
	t, err := s.loadForActor(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if req.Empty() {
		return t, nil
	}
	if req.Title != nil && *req.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
	}
	if err := s.store.UpdateTask(ctx, id, req); err != nil {
		return nil, err
	}

	var changed []string
	if req.Title != nil {
		changed = append(changed, "title")
	}
	if req.Description != nil {
		changed = append(changed, "description")
	}
	if req.Tags != nil {
		changed = append(changed, "tags")
	}
	updated, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	s.feed.taskChanged(ctx, updated)
	if len(changed) == 0 {
		return updated, nil
	}
	return updated, s.feed.record(ctx, activity.TypeTaskUpdate, actorID, id,
		fmt.Sprintf("updated %s of \"%s\"", strings.Join(changed, ", "), t.Title))
}

// Archive moves a task to archived.
func (s *TaskService) Archive(ctx context.Context, id, actorID string) (*task.Task, error) {
	t, err := s.loadForActor(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	next, err := task.Transition(t.Status, task.StatusArchived)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := s.store.UpdateTaskStatus(ctx, id, next); err != nil {
		return nil, err
	}
	t.Status = next
	s.feed.taskChanged(ctx, t)
	return t, s.feed.record(ctx, activity.TypeStatusUpdate, actorID, id,
		fmt.Sprintf("archived \"%s\"", t.Title))
}

// LinkRun binds a run to a task and marks it started.
func (s *TaskService) LinkRun(ctx context.Context, id, runID string) error {
	if runID == "" {
		return fmt.Errorf("%w: run_id is required", domain.ErrValidation)
	}
	now := s.now()
	return s.store.PatchTask(ctx, id, task.Patch{RunID: &runID, StartedAt: &now})
}

func (s *TaskService) loadForActor(ctx context.Context, id, actorID string) (*task.Task, error) {
	if actorID == "" {
		return nil, fmt.Errorf("%w: agent_id is required", domain.ErrValidation)
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetAgent(ctx, actorID); err != nil {
		return nil, fmt.Errorf("acting agent: %w", err)
	}
	return t, nil
}

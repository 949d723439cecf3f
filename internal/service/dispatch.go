package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	cfotel "github.com/Strob0t/missioncontrol/internal/adapter/otel"
	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
	"github.com/Strob0t/missioncontrol/internal/middleware"
	"github.com/Strob0t/missioncontrol/internal/port/broadcast"
	"github.com/Strob0t/missioncontrol/internal/port/database"
	"github.com/Strob0t/missioncontrol/internal/port/messagequeue"
)

const dispatchTitleMax = 80

// DispatchTags are applied when a dispatch request carries no tags.
var DispatchTags = []string{"dispatched"}

// ErrMissingDispatchFields is returned when a dispatch lacks description or agent.
var ErrMissingDispatchFields = fmt.Errorf("%w: Missing required fields: description, agent", domain.ErrValidation)

// DispatchRequest asks for a task to be created and assigned to a named agent.
type DispatchRequest struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	Agent       string   `json:"agent"`
	Tags        []string `json:"tags,omitempty"`
	TenantID    string   `json:"tenantId,omitempty"`
}

// Validate checks required fields and the tenant id format.
func (r *DispatchRequest) Validate() error {
	if r.Description == "" || r.Agent == "" {
		return ErrMissingDispatchFields
	}
	if r.TenantID != "" {
		if _, err := uuid.Parse(r.TenantID); err != nil {
			return fmt.Errorf("%w: tenantId must be a uuid", domain.ErrValidation)
		}
	}
	return nil
}

// DispatchService creates agent-assigned tasks and tracks their hand-off to
// the runner.
type DispatchService struct {
	store  database.Store
	queue  messagequeue.Queue
	feed   feed
	system agent.SystemSpec
	now    func() time.Time
}

// NewDispatchService creates a DispatchService.
func NewDispatchService(store database.Store, queue messagequeue.Queue, bc broadcast.Broadcaster, system agent.SystemSpec) *DispatchService {
	return &DispatchService{
		store:  store,
		queue:  queue,
		feed:   newFeed(store, bc),
		system: system,
		now:    time.Now,
	}
}

// Dispatch creates an assigned task for the named agent and publishes it on
// tasks.dispatched. A request tenant overrides the tenant in ctx.
func (s *DispatchService) Dispatch(ctx context.Context, req DispatchRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.TenantID != "" {
		ctx = middleware.WithTenantID(ctx, req.TenantID)
	}
	ctx, span := cfotel.StartDispatchSpan(ctx, req.Agent)
	defer span.End()

	a, err := s.store.FindAgentByName(ctx, req.Agent)
	if err != nil {
		return nil, fmt.Errorf("dispatch to %q: %w", req.Agent, err)
	}

	title := req.Title
	if title == "" {
		title = truncateRunes(req.Description, dispatchTitleMax)
	}
	tags := req.Tags
	if tags == nil {
		tags = append([]string(nil), DispatchTags...)
	}

	t, err := s.store.CreateTask(ctx, task.CreateRequest{
		Title:       title,
		Description: req.Description,
		Status:      task.StatusAssigned,
		AssigneeIDs: []string{a.ID},
		Tags:        tags,
	})
	if err != nil {
		return nil, fmt.Errorf("create dispatched task: %w", err)
	}
	s.feed.taskChanged(ctx, t)

	if err := s.feed.record(ctx, activity.TypeStatusUpdate, a.ID, t.ID,
		fmt.Sprintf("task \"%s\" created and assigned", title)); err != nil {
		return t, err
	}

	s.publish(ctx, t, a)
	return t, nil
}

// publish announces the task to the runner. The task is already stored, so
// a publish failure is logged and the runner picks it up from
// ListDispatchable instead.
func (s *DispatchService) publish(ctx context.Context, t *task.Task, a *agent.Agent) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.TaskDispatchedPayload{
		TaskID:      t.ID,
		TenantID:    t.TenantID,
		AgentID:     a.ID,
		AgentName:   a.Name,
		Title:       t.Title,
		Description: t.Description,
		Tags:        t.Tags,
	})
	if err != nil {
		slog.ErrorContext(ctx, "marshal dispatched task", "task_id", t.ID, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectTaskDispatched, data); err != nil {
		slog.ErrorContext(ctx, "failed to publish dispatched task", "task_id", t.ID, "error", err)
	}
}

// ListDispatchable returns assigned tasks not yet handed to the runner.
func (s *DispatchService) ListDispatchable(ctx context.Context) ([]task.Task, error) {
	return s.store.ListDispatchableTasks(ctx)
}

// MarkDispatched records that the runner picked up a task.
func (s *DispatchService) MarkDispatched(ctx context.Context, taskID string) error {
	now := s.now()
	if err := s.store.PatchTask(ctx, taskID, task.Patch{DispatchedAt: &now}); err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	return nil
}

// UpdateContainerState records the runtime state of a named agent.
func (s *DispatchService) UpdateContainerState(ctx context.Context, agentName string, state agent.ContainerState) error {
	if !state.Valid() {
		return fmt.Errorf("%w: invalid container state %q", domain.ErrValidation, state)
	}
	return s.store.UpdateAgentContainerState(ctx, agentName, state)
}

// ReportError moves a task to review and posts the runner's error as the
// system agent.
func (s *DispatchService) ReportError(ctx context.Context, taskID, errText string) error {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	patch := task.Patch{DispatchError: &errText}
	if next, err := task.Transition(t.Status, task.StatusReview); err == nil {
		patch.Status = &next
		t.Status = next
	} else {
		slog.WarnContext(ctx, "status change skipped", "task_id", t.ID, "error", err)
	}
	if err := s.store.PatchTask(ctx, t.ID, patch); err != nil {
		return fmt.Errorf("report dispatch error: %w", err)
	}
	s.feed.taskChanged(ctx, t)

	sys, err := s.store.EnsureSystemAgent(ctx, s.system.Request())
	if err != nil {
		slog.WarnContext(ctx, "system agent unavailable", "error", err)
		return nil
	}
	if err := s.feed.say(ctx, t.ID, sys.ID, "**Dispatch Error**\n\n"+errText); err != nil {
		return err
	}
	return s.feed.record(ctx, activity.TypeStatusUpdate, sys.ID, t.ID,
		fmt.Sprintf("dispatch error on \"%s\"", t.Title))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

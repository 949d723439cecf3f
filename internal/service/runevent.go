package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cfotel "github.com/Strob0t/missioncontrol/internal/adapter/otel"
	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/domain/document"
	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/domain/runevent"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
	"github.com/Strob0t/missioncontrol/internal/logger"
	"github.com/Strob0t/missioncontrol/internal/middleware"
	"github.com/Strob0t/missioncontrol/internal/port/broadcast"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

// errSkipped marks an event whose preconditions were not met. It is never
// returned to callers.
var errSkipped = errors.New("event skipped")

// EventProcessor folds run lifecycle events into task, message, document and
// activity state. It keeps no state between events: every call re-derives the
// task, tenant and author from the store.
type EventProcessor struct {
	store         database.Store
	feed          feed
	metrics       *cfotel.Metrics
	system        agent.SystemSpec
	defaultTenant string
	now           func() time.Time
}

// NewEventProcessor creates an EventProcessor. Events that cannot be
// correlated to a task are attributed to defaultTenant.
func NewEventProcessor(store database.Store, bc broadcast.Broadcaster, system agent.SystemSpec, defaultTenant string) *EventProcessor {
	return &EventProcessor{
		store:         store,
		feed:          newFeed(store, bc),
		system:        system,
		defaultTenant: defaultTenant,
		now:           time.Now,
	}
}

// SetMetrics enables metric recording.
func (p *EventProcessor) SetMetrics(m *cfotel.Metrics) { p.metrics = m }

// run is the context re-derived for a single event.
type run struct {
	ev     *runevent.Event
	task   *task.Task
	author *agent.Agent
}

// Process applies one event. Events with unmet preconditions are acknowledged
// without effect. Only store failures are returned.
func (p *EventProcessor) Process(ctx context.Context, ev *runevent.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	started := time.Now()
	ctx = logger.WithRunID(ctx, ev.RunID)
	ctx, span := cfotel.StartEventSpan(ctx, ev.RunID, string(ev.Action))
	defer span.End()

	err := p.process(ctx, ev)

	outcome := "ok"
	switch {
	case errors.Is(err, errSkipped):
		outcome = "skipped"
		slog.DebugContext(ctx, "run event skipped", "action", ev.Action, "reason", err)
		err = nil
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		slog.ErrorContext(ctx, "run event failed", "action", ev.Action, "error", err)
	}
	p.metrics.RecordEvent(ctx, string(ev.Action), outcome, time.Since(started).Seconds())
	return err
}

func (p *EventProcessor) process(ctx context.Context, ev *runevent.Event) error {
	t, err := p.correlate(ctx, ev)
	if err != nil {
		return err
	}

	tenantID := p.defaultTenant
	if t != nil {
		tenantID = t.TenantID
	}
	ctx = middleware.WithTenantID(ctx, tenantID)

	r := &run{ev: ev, task: t, author: p.resolveAuthor(ctx, ev.AgentID)}

	switch ev.Action {
	case runevent.ActionStart:
		return p.start(ctx, r)
	case runevent.ActionProgress:
		return p.progress(ctx, r)
	case runevent.ActionEnd:
		return p.end(ctx, r)
	case runevent.ActionError:
		return p.fail(ctx, r)
	case runevent.ActionDocument:
		return p.document(ctx, r)
	}
	return fmt.Errorf("%w: unknown action %q", domain.ErrValidation, ev.Action)
}

// correlate finds the task for a run, falling back to the task referenced by
// the session key. A session-key hit binds the run to that task. A miss is
// not an error.
func (p *EventProcessor) correlate(ctx context.Context, ev *runevent.Event) (*task.Task, error) {
	t, err := p.store.FindTaskByRunID(ctx, ev.RunID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find task by run: %w", err)
	}

	ref, ok := runevent.TaskRefFromSessionKey(ev.SessionKey)
	if !ok {
		return nil, nil
	}
	t, err = p.store.GetTaskUnscoped(ctx, ref)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task by session key: %w", err)
	}

	tctx := middleware.WithTenantID(ctx, t.TenantID)
	if err := p.store.PatchTask(tctx, t.ID, task.Patch{RunID: &ev.RunID}); err != nil {
		return nil, fmt.Errorf("bind run to task: %w", err)
	}
	t.RunID = ev.RunID
	slog.InfoContext(ctx, "run bound to task via session key", "task_id", t.ID)
	return t, nil
}

// resolveAuthor prefers the agent named by the event and falls back to the
// tenant's system agent. It returns nil only when neither is available.
func (p *EventProcessor) resolveAuthor(ctx context.Context, name string) *agent.Agent {
	if name != "" {
		a, err := p.store.FindAgentByName(ctx, name)
		if err == nil {
			return a
		}
		if !errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "agent lookup failed", "agent", name, "error", err)
		}
	}
	sys, err := p.store.EnsureSystemAgent(ctx, p.system.Request())
	if err != nil {
		slog.WarnContext(ctx, "system agent unavailable", "error", err)
		return nil
	}
	return sys
}

func (p *EventProcessor) start(ctx context.Context, r *run) error {
	ev, now := r.ev, p.now()

	if r.task == nil {
		title := runevent.PlaceholderTitle(ev.RunID)
		desc := runevent.PlaceholderDescription(p.system.Name, ev.RunID)
		if ev.Prompt != "" {
			title = runevent.SummarizePrompt(ev.Prompt)
			desc = ev.Prompt
		}
		req := task.CreateRequest{
			Title:       title,
			Description: desc,
			Status:      task.StatusInProgress,
			Tags:        append([]string(nil), runevent.DefaultTags...),
			RunID:       ev.RunID,
			SessionKey:  ev.SessionKey,
			StartedAt:   &now,
		}
		if r.author != nil {
			req.AssigneeIDs = []string{r.author.ID}
		}
		t, err := p.store.CreateTask(ctx, req)
		if err != nil {
			return fmt.Errorf("create task for run: %w", err)
		}
		p.feed.taskChanged(ctx, t)
		slog.InfoContext(ctx, "task created for run", "task_id", t.ID)

		if r.author == nil {
			return nil
		}
		if err := p.feed.say(ctx, t.ID, r.author.ID, runevent.StartedMessage(ev.Source, ev.Prompt)); err != nil {
			return err
		}
		return p.feed.record(ctx, activity.TypeStatusUpdate, r.author.ID, t.ID,
			fmt.Sprintf("started \"%s\"", title))
	}

	t := r.task
	if ev.Prompt != "" && runevent.IsPlaceholderTitle(t.Title) {
		title := runevent.SummarizePrompt(ev.Prompt)
		err := p.store.PatchTask(ctx, t.ID, task.Patch{Title: &title, Description: &ev.Prompt, StartedAt: &now})
		if err != nil {
			return fmt.Errorf("retitle task: %w", err)
		}
		t.Title, t.Description, t.StartedAt = title, ev.Prompt, &now
		p.feed.taskChanged(ctx, t)
		return nil
	}

	// A restart opens a fresh classification window; status is left alone.
	reset := false
	if err := p.store.PatchTask(ctx, t.ID, task.Patch{StartedAt: &now, UsedCodingTools: &reset}); err != nil {
		return fmt.Errorf("restart task: %w", err)
	}
	t.StartedAt, t.UsedCodingTools = &now, false
	p.feed.taskChanged(ctx, t)
	return nil
}

func (p *EventProcessor) progress(ctx context.Context, r *run) error {
	if r.task == nil || r.author == nil {
		return fmt.Errorf("%w: progress needs a task and an agent", errSkipped)
	}
	ev, t := r.ev, r.task
	if err := p.feed.say(ctx, t.ID, r.author.ID, runevent.ProgressMessage(ev.Message)); err != nil {
		return err
	}
	if t.UsedCodingTools || !runevent.IsCodingToolUse(ev.EventType, ev.Message) {
		return nil
	}
	used := true
	if err := p.store.PatchTask(ctx, t.ID, task.Patch{UsedCodingTools: &used}); err != nil {
		return fmt.Errorf("flag coding tools: %w", err)
	}
	return nil
}

func (p *EventProcessor) end(ctx context.Context, r *run) error {
	if r.task == nil {
		return fmt.Errorf("%w: end without a task", errSkipped)
	}
	t := r.task

	hasCodeDocs := false
	if !t.UsedCodingTools {
		n, err := p.store.CountDocuments(ctx, t.ID, document.TypeCode)
		if err != nil {
			return fmt.Errorf("count code documents: %w", err)
		}
		hasCodeDocs = n > 0
	}
	outcome := runevent.Classify(t, r.ev.Response, hasCodeDocs)
	elapsed := runevent.FormatDuration(p.now().Sub(t.StartTime()))

	if err := p.moveTo(ctx, t, outcome.Status()); err != nil {
		return err
	}
	p.metrics.RecordCompletion(ctx, string(t.Status))

	if r.author == nil {
		return nil
	}
	if err := p.feed.say(ctx, t.ID, r.author.ID, runevent.CompletionMessage(outcome, elapsed, r.ev.Response)); err != nil {
		return err
	}
	return p.feed.record(ctx, activity.TypeStatusUpdate, r.author.ID, t.ID,
		runevent.CompletionActivity(outcome, t.Title, elapsed))
}

func (p *EventProcessor) fail(ctx context.Context, r *run) error {
	if r.task == nil {
		return fmt.Errorf("%w: error without a task", errSkipped)
	}
	t := r.task
	elapsed := runevent.FormatDuration(p.now().Sub(t.StartTime()))

	if err := p.moveTo(ctx, t, task.StatusReview); err != nil {
		return err
	}
	if r.author == nil {
		return nil
	}
	if err := p.feed.say(ctx, t.ID, r.author.ID, runevent.ErrorMessage(elapsed, r.ev.Error)); err != nil {
		return err
	}
	return p.feed.record(ctx, activity.TypeStatusUpdate, r.author.ID, t.ID,
		fmt.Sprintf("error on \"%s\" after %s", t.Title, elapsed))
}

func (p *EventProcessor) document(ctx context.Context, r *run) error {
	if r.author == nil || r.ev.Document == nil {
		return fmt.Errorf("%w: document needs an agent and a payload", errSkipped)
	}
	payload := *r.ev.Document
	if payload.Type == "" {
		payload.Type = string(document.TypeMarkdown)
	}

	req := document.CreateRequest{
		Title:       payload.Title,
		Content:     payload.Content,
		Type:        document.Type(payload.Type),
		Path:        payload.Path,
		CreatedByID: r.author.ID,
	}
	taskID := ""
	if r.task != nil {
		taskID = r.task.ID
		req.TaskID = taskID
	}
	d, err := p.store.CreateDocument(ctx, req)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	p.feed.bc.BroadcastEvent(ctx, broadcast.EventDocument, d)

	msg := fmt.Sprintf("created document \"%s\"", d.Title)
	if r.task != nil {
		msg += fmt.Sprintf(" for \"%s\"", r.task.Title)
	}
	if err := p.feed.record(ctx, activity.TypeDocumentCreated, r.author.ID, taskID, msg); err != nil {
		return err
	}
	if r.task == nil {
		return nil
	}
	_, err = p.feed.post(ctx, message.CreateRequest{
		TaskID:        taskID,
		FromAgentID:   r.author.ID,
		Content:       runevent.DocumentMessage(&payload),
		AttachmentIDs: []string{d.ID},
	})
	return err
}

// allowed checks a status change against the transition table. Disallowed
// changes are logged and skipped.
func (p *EventProcessor) allowed(ctx context.Context, t *task.Task, to task.Status) (task.Status, bool) {
	next, err := task.Transition(t.Status, to)
	if err != nil {
		slog.WarnContext(ctx, "status change skipped", "task_id", t.ID, "error", err)
		return t.Status, false
	}
	return next, true
}

func (p *EventProcessor) moveTo(ctx context.Context, t *task.Task, to task.Status) error {
	next, ok := p.allowed(ctx, t, to)
	if !ok {
		return nil
	}
	if err := p.store.UpdateTaskStatus(ctx, t.ID, next); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	t.Status = next
	p.feed.taskChanged(ctx, t)
	return nil
}

package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
	"github.com/Strob0t/missioncontrol/internal/domain/document"
	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
	"github.com/Strob0t/missioncontrol/internal/domain/tenant"
	"github.com/Strob0t/missioncontrol/internal/domain/usage"
	"github.com/Strob0t/missioncontrol/internal/middleware"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

// Ensure mockStore implements database.Store at compile time.
var _ database.Store = (*mockStore)(nil)

// mockStore is an in-memory, tenant-scoped implementation of database.Store.
type mockStore struct {
	mu         sync.Mutex
	tasks      []task.Task
	agents     []agent.Agent
	messages   []message.Message
	activities []activity.Activity
	documents  []document.Document
	tokens     []apitoken.Token
	settings   map[string]tenant.Settings
	usage      map[usage.Granularity]map[string]usage.Record

	// Error hooks for injecting failures.
	createTaskErr    error
	createMessageErr error
	upsertUsageErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		settings: make(map[string]tenant.Settings),
		usage: map[usage.Granularity]map[string]usage.Record{
			usage.Daily:  {},
			usage.Hourly: {},
		},
	}
}

func tid(ctx context.Context) string { return middleware.TenantIDFromContext(ctx) }

func (m *mockStore) findTask(ctx context.Context, id string) (*task.Task, error) {
	for i := range m.tasks {
		if m.tasks[i].ID == id && m.tasks[i].TenantID == tid(ctx) {
			return &m.tasks[i], nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

// --- Tasks ---

func (m *mockStore) CreateTask(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createTaskErr != nil {
		return nil, m.createTaskErr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	t := task.Task{
		ID:          uuid.NewString(),
		TenantID:    tid(ctx),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		AssigneeIDs: append([]string{}, req.AssigneeIDs...),
		Tags:        append([]string{}, req.Tags...),
		BorderColor: req.BorderColor,
		RunID:       req.RunID,
		SessionKey:  req.SessionKey,
		StartedAt:   req.StartedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tasks = append(m.tasks, t)
	return &t, nil
}

func (m *mockStore) GetTask(ctx context.Context, id string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.findTask(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) ListTasks(ctx context.Context) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []task.Task
	for i := range m.tasks {
		if m.tasks[i].TenantID == tid(ctx) {
			out = append(out, m.tasks[i])
		}
	}
	return out, nil
}

func (m *mockStore) ListDispatchableTasks(ctx context.Context) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []task.Task
	for i := range m.tasks {
		t := m.tasks[i]
		if t.TenantID == tid(ctx) && t.Status == task.StatusAssigned && t.DispatchedAt == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateTaskStatus(ctx context.Context, id string, status task.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.findTask(ctx, id)
	if err != nil {
		return err
	}
	t.Status = status
	return nil
}

func (m *mockStore) UpdateTaskAssignees(ctx context.Context, id string, assigneeIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.findTask(ctx, id)
	if err != nil {
		return err
	}
	t.AssigneeIDs = append([]string{}, assigneeIDs...)
	return nil
}

func (m *mockStore) UpdateTask(ctx context.Context, id string, req task.UpdateRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.findTask(ctx, id)
	if err != nil {
		return err
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Tags != nil {
		t.Tags = append([]string{}, req.Tags...)
	}
	if req.BorderColor != nil {
		t.BorderColor = *req.BorderColor
	}
	return nil
}

func (m *mockStore) PatchTask(ctx context.Context, id string, p task.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.findTask(ctx, id)
	if err != nil {
		return err
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.RunID != nil {
		t.RunID = *p.RunID
	}
	if p.StartedAt != nil {
		at := *p.StartedAt
		t.StartedAt = &at
	}
	if p.UsedCodingTools != nil {
		t.UsedCodingTools = *p.UsedCodingTools
	}
	if p.DispatchedAt != nil {
		at := *p.DispatchedAt
		t.DispatchedAt = &at
	}
	if p.ContainerState != nil {
		t.ContainerState = *p.ContainerState
	}
	if p.DispatchError != nil {
		t.DispatchError = *p.DispatchError
	}
	return nil
}

func (m *mockStore) FindTaskByRunID(_ context.Context, runID string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.tasks) - 1; i >= 0; i-- {
		if m.tasks[i].RunID == runID {
			cp := m.tasks[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("task for run %s: %w", runID, domain.ErrNotFound)
}

func (m *mockStore) GetTaskUnscoped(_ context.Context, id string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			cp := m.tasks[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

// --- Agents ---

func (m *mockStore) findAgent(ctx context.Context, id string) (*agent.Agent, error) {
	for i := range m.agents {
		if m.agents[i].ID == id && m.agents[i].TenantID == tid(ctx) {
			return &m.agents[i], nil
		}
	}
	return nil, fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) insertAgent(ctx context.Context, req agent.CreateRequest, system bool) agent.Agent {
	now := time.Now()
	a := agent.Agent{
		ID:           uuid.NewString(),
		TenantID:     tid(ctx),
		Name:         req.Name,
		Role:         req.Role,
		Level:        req.Level,
		Status:       req.Status,
		Avatar:       req.Avatar,
		SystemPrompt: req.SystemPrompt,
		Character:    req.Character,
		Lore:         req.Lore,
		Kind:         req.Kind,
		Capabilities: req.Capabilities,
		IsSystem:     system,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.agents = append(m.agents, a)
	return a
}

func (m *mockStore) CreateAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a := m.insertAgent(ctx, req, false)
	return &a, nil
}

func (m *mockStore) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.findAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *a
	return &cp, nil
}

func (m *mockStore) ListAgents(ctx context.Context) ([]agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []agent.Agent
	for i := range m.agents {
		if m.agents[i].TenantID == tid(ctx) {
			out = append(out, m.agents[i])
		}
	}
	return out, nil
}

func (m *mockStore) UpdateAgent(ctx context.Context, id string, req agent.UpdateRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.findAgent(ctx, id)
	if err != nil {
		return err
	}
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Role != nil {
		a.Role = *req.Role
	}
	if req.Level != nil {
		a.Level = *req.Level
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.Avatar != nil {
		a.Avatar = *req.Avatar
	}
	return nil
}

func (m *mockStore) UpdateAgentStatus(ctx context.Context, id string, status agent.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.findAgent(ctx, id)
	if err != nil {
		return err
	}
	a.Status = status
	return nil
}

func (m *mockStore) UpdateAgentContainerState(ctx context.Context, name string, state agent.ContainerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.agents {
		if m.agents[i].Name == name && m.agents[i].TenantID == tid(ctx) {
			now := time.Now()
			m.agents[i].ContainerState = state
			m.agents[i].LastActiveAt = &now
			return nil
		}
	}
	return fmt.Errorf("agent %q: %w", name, domain.ErrNotFound)
}

func (m *mockStore) DeleteAgent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.agents {
		if m.agents[i].ID == id && m.agents[i].TenantID == tid(ctx) {
			m.agents = append(m.agents[:i], m.agents[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("agent %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) FindAgentByName(ctx context.Context, name string) (*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.agents {
		if m.agents[i].Name == name && m.agents[i].TenantID == tid(ctx) {
			cp := m.agents[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("agent %q: %w", name, domain.ErrNotFound)
}

func (m *mockStore) EnsureSystemAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.agents {
		if m.agents[i].IsSystem && m.agents[i].TenantID == tid(ctx) {
			cp := m.agents[i]
			return &cp, nil
		}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a := m.insertAgent(ctx, req, true)
	return &a, nil
}

// --- Messages ---

func (m *mockStore) CreateMessage(ctx context.Context, req message.CreateRequest) (*message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createMessageErr != nil {
		return nil, m.createMessageErr
	}
	msg := message.Message{
		ID:            uuid.NewString(),
		TenantID:      tid(ctx),
		TaskID:        req.TaskID,
		FromAgentID:   req.FromAgentID,
		Content:       req.Content,
		AttachmentIDs: append([]string{}, req.AttachmentIDs...),
		CreatedAt:     time.Now(),
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *mockStore) GetMessage(ctx context.Context, id string) (*message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id && m.messages[i].TenantID == tid(ctx) {
			cp := m.messages[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) ListMessages(ctx context.Context, taskID string) ([]message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []message.Message
	for i := range m.messages {
		if m.messages[i].TaskID == taskID && m.messages[i].TenantID == tid(ctx) {
			out = append(out, m.messages[i])
		}
	}
	return out, nil
}

// --- Activities ---

func (m *mockStore) CreateActivity(ctx context.Context, a activity.Activity) (*activity.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.NewString()
	a.TenantID = tid(ctx)
	a.CreatedAt = time.Now()
	m.activities = append(m.activities, a)
	return &a, nil
}

func (m *mockStore) ListActivities(ctx context.Context, f activity.Filter) ([]activity.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []activity.Activity
	for i := len(m.activities) - 1; i >= 0 && len(out) < f.EffectiveLimit(); i-- {
		a := m.activities[i]
		if a.TenantID != tid(ctx) {
			continue
		}
		if f.AgentID != "" && a.AgentID != f.AgentID {
			continue
		}
		if f.TaskID != "" && a.TargetTaskID != f.TaskID {
			continue
		}
		if len(f.Types) > 0 && !containsType(f.Types, a.Type) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func containsType(types []activity.Type, t activity.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (m *mockStore) PurgeExpiredActivities(_ context.Context, now time.Time, defaultDays int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []activity.Activity
	var n int64
	for _, a := range m.activities {
		days := defaultDays
		if s, ok := m.settings[a.TenantID]; ok {
			days = s.RetentionDays
		}
		if a.CreatedAt.Before(now.AddDate(0, 0, -days)) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	m.activities = kept
	return n, nil
}

// --- Documents ---

func (m *mockStore) CreateDocument(ctx context.Context, req document.CreateRequest) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	d := document.Document{
		ID:          uuid.NewString(),
		TenantID:    tid(ctx),
		Title:       req.Title,
		Content:     req.Content,
		Type:        req.Type,
		Path:        req.Path,
		TaskID:      req.TaskID,
		CreatedByID: req.CreatedByID,
		MessageID:   req.MessageID,
		CreatedAt:   time.Now(),
	}
	m.documents = append(m.documents, d)
	return &d, nil
}

func (m *mockStore) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.documents {
		if m.documents[i].ID == id && m.documents[i].TenantID == tid(ctx) {
			cp := m.documents[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) ListDocuments(ctx context.Context, f document.Filter) ([]document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []document.Document
	for _, d := range m.documents {
		if d.TenantID != tid(ctx) {
			continue
		}
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		if f.AgentID != "" && d.CreatedByID != f.AgentID {
			continue
		}
		if f.TaskID != "" && d.TaskID != f.TaskID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *mockStore) CountDocuments(ctx context.Context, taskID string, typ document.Type) (int, error) {
	docs, err := m.ListDocuments(ctx, document.Filter{TaskID: taskID, Type: typ})
	return len(docs), err
}

// --- API tokens ---

func (m *mockStore) CreateAPIToken(_ context.Context, t *apitoken.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	m.tokens = append(m.tokens, *t)
	return nil
}

func (m *mockStore) GetAPITokenByHash(_ context.Context, hash string) (*apitoken.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tokens {
		if m.tokens[i].TokenHash == hash {
			cp := m.tokens[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("api token: %w", domain.ErrNotFound)
}

func (m *mockStore) ListAPITokens(ctx context.Context) ([]apitoken.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []apitoken.Token
	for _, t := range m.tokens {
		if t.TenantID == tid(ctx) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) RevokeAPIToken(ctx context.Context, id string) (*apitoken.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tokens {
		if m.tokens[i].ID == id && m.tokens[i].TenantID == tid(ctx) {
			if m.tokens[i].RevokedAt == nil {
				now := time.Now()
				m.tokens[i].RevokedAt = &now
			}
			cp := m.tokens[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("api token %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) TouchAPIToken(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tokens {
		if m.tokens[i].ID == id {
			m.tokens[i].LastUsedAt = &at
			return nil
		}
	}
	return fmt.Errorf("api token %s: %w", id, domain.ErrNotFound)
}

// --- Tenant settings ---

func (m *mockStore) GetTenantSettings(ctx context.Context) (*tenant.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[tid(ctx)]
	if !ok {
		s = tenant.DefaultSettings(tid(ctx))
	}
	return &s, nil
}

func (m *mockStore) UpdateTenantSettings(ctx context.Context, req tenant.UpdateRequest) (*tenant.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[tid(ctx)]
	if !ok {
		s = tenant.DefaultSettings(tid(ctx))
	}
	if req.RetentionDays != nil {
		s.RetentionDays = *req.RetentionDays
	}
	if req.DailyBudgetCents != nil {
		s.DailyBudgetCents = *req.DailyBudgetCents
	}
	if req.CompleteOnboarding && s.OnboardingCompletedAt == nil {
		now := time.Now()
		s.OnboardingCompletedAt = &now
	}
	m.settings[tid(ctx)] = s
	return &s, nil
}

// --- Usage ---

func (m *mockStore) UpsertUsage(_ context.Context, g usage.Granularity, buckets []usage.Bucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertUsageErr != nil {
		return m.upsertUsageErr
	}
	for _, b := range buckets {
		rec := m.usage[g][b.Key]
		rec.Key = b.Key
		if b.CostCents != nil {
			rec.CostCents = *b.CostCents
		}
		if b.Tokens != nil {
			rec.Tokens = *b.Tokens
		}
		rec.FetchedAt = time.Now()
		m.usage[g][b.Key] = rec
	}
	return nil
}

func (m *mockStore) GetUsage(_ context.Context, g usage.Granularity, key string) (*usage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.usage[g][key]
	if !ok {
		return nil, fmt.Errorf("usage %s: %w", key, domain.ErrNotFound)
	}
	return &rec, nil
}

func (m *mockStore) ListUsageSince(_ context.Context, g usage.Granularity, fromKey string) ([]usage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []usage.Record
	for k, rec := range m.usage[g] {
		if k >= fromKey {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// --- helpers shared by service tests ---

// messagesFor returns the message contents on a task in insertion order.
func (m *mockStore) messagesFor(taskID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.messages {
		if msg.TaskID == taskID {
			out = append(out, msg.Content)
		}
	}
	return out
}

// activityCount returns the number of stored activities across tenants.
func (m *mockStore) activityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.activities)
}

// taskByRun returns the stored task bound to runID, or nil.
func (m *mockStore) taskByRun(runID string) *task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].RunID == runID {
			cp := m.tasks[i]
			return &cp
		}
	}
	return nil
}

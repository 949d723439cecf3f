// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/agent"
	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
	"github.com/Strob0t/missioncontrol/internal/domain/document"
	"github.com/Strob0t/missioncontrol/internal/domain/message"
	"github.com/Strob0t/missioncontrol/internal/domain/task"
	"github.com/Strob0t/missioncontrol/internal/domain/tenant"
	"github.com/Strob0t/missioncontrol/internal/domain/usage"
)

// Store is the port interface for database operations.
// Unless noted otherwise, methods are scoped to the tenant carried in ctx and
// report domain.ErrNotFound for records owned by another tenant.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, req task.CreateRequest) (*task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	ListTasks(ctx context.Context) ([]task.Task, error)
	ListDispatchableTasks(ctx context.Context) ([]task.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status task.Status) error
	UpdateTaskAssignees(ctx context.Context, id string, assigneeIDs []string) error
	UpdateTask(ctx context.Context, id string, req task.UpdateRequest) error
	PatchTask(ctx context.Context, id string, p task.Patch) error

	// Run correlation. These lookups are not tenant-scoped: the tenant is
	// derived from the task they return.
	FindTaskByRunID(ctx context.Context, runID string) (*task.Task, error)
	GetTaskUnscoped(ctx context.Context, id string) (*task.Task, error)

	// Agents
	CreateAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error)
	GetAgent(ctx context.Context, id string) (*agent.Agent, error)
	ListAgents(ctx context.Context) ([]agent.Agent, error)
	UpdateAgent(ctx context.Context, id string, req agent.UpdateRequest) error
	UpdateAgentStatus(ctx context.Context, id string, status agent.Status) error
	UpdateAgentContainerState(ctx context.Context, name string, state agent.ContainerState) error
	DeleteAgent(ctx context.Context, id string) error
	FindAgentByName(ctx context.Context, name string) (*agent.Agent, error)
	// EnsureSystemAgent returns the tenant's system agent, creating it when
	// absent. Concurrent callers observe the same record.
	EnsureSystemAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error)

	// Messages
	CreateMessage(ctx context.Context, req message.CreateRequest) (*message.Message, error)
	GetMessage(ctx context.Context, id string) (*message.Message, error)
	ListMessages(ctx context.Context, taskID string) ([]message.Message, error)

	// Activities
	CreateActivity(ctx context.Context, a activity.Activity) (*activity.Activity, error)
	ListActivities(ctx context.Context, f activity.Filter) ([]activity.Activity, error)
	// PurgeExpiredActivities deletes activities of every tenant older than
	// that tenant's retention, using defaultDays for tenants without settings.
	PurgeExpiredActivities(ctx context.Context, now time.Time, defaultDays int) (int64, error)

	// Documents
	CreateDocument(ctx context.Context, req document.CreateRequest) (*document.Document, error)
	GetDocument(ctx context.Context, id string) (*document.Document, error)
	ListDocuments(ctx context.Context, f document.Filter) ([]document.Document, error)
	CountDocuments(ctx context.Context, taskID string, typ document.Type) (int, error)

	// API tokens
	CreateAPIToken(ctx context.Context, t *apitoken.Token) error
	// GetAPITokenByHash is not tenant-scoped; it resolves the token's tenant.
	GetAPITokenByHash(ctx context.Context, hash string) (*apitoken.Token, error)
	ListAPITokens(ctx context.Context) ([]apitoken.Token, error)
	RevokeAPIToken(ctx context.Context, id string) (*apitoken.Token, error)
	TouchAPIToken(ctx context.Context, id string, at time.Time) error

	// Tenant settings
	GetTenantSettings(ctx context.Context) (*tenant.Settings, error)
	UpdateTenantSettings(ctx context.Context, req tenant.UpdateRequest) (*tenant.Settings, error)

	// Usage records are organization-wide and not tenant-scoped.
	UpsertUsage(ctx context.Context, g usage.Granularity, buckets []usage.Bucket) error
	GetUsage(ctx context.Context, g usage.Granularity, key string) (*usage.Record, error)
	ListUsageSince(ctx context.Context, g usage.Granularity, fromKey string) ([]usage.Record, error)
}

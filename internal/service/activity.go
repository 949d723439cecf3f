package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/tenant"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

// ActivityService serves the tenant activity feed.
type ActivityService struct {
	store database.Store
}

// NewActivityService creates a new ActivityService.
func NewActivityService(store database.Store) *ActivityService {
	return &ActivityService{store: store}
}

// FeedQuery selects feed entries. Type is either a group name (tasks,
// comments, docs, status) or an exact activity type.
type FeedQuery struct {
	AgentID string
	TaskID  string
	Type    string
	Limit   int
}

// Feed returns the latest matching activities, newest first.
func (s *ActivityService) Feed(ctx context.Context, q FeedQuery) ([]activity.Activity, error) {
	return s.store.ListActivities(ctx, activity.Filter{
		AgentID: q.AgentID,
		TaskID:  q.TaskID,
		Types:   activity.Group(q.Type),
		Limit:   q.Limit,
	})
}

// PurgeExpired deletes activities past each tenant's retention.
func (s *ActivityService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpiredActivities(ctx, time.Now(), tenant.DefaultRetentionDays)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "purged expired activities", "count", n)
	}
	return n, nil
}

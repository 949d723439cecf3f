package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/activity"
	"github.com/Strob0t/missioncontrol/internal/domain/tenant"
	"github.com/Strob0t/missioncontrol/internal/middleware"
)

func TestActivityFeedFilters(t *testing.T) {
	f := newBoardFixture(t)
	svc := NewActivityService(f.store)
	fd := newFeed(f.store, nil)

	entries := []struct {
		typ    activity.Type
		taskID string
	}{
		{activity.TypeStatusUpdate, f.task.ID},
		{activity.TypeMessage, f.task.ID},
		{activity.TypeDocumentCreated, ""},
		{activity.TypeTaskUpdate, f.task.ID},
	}
	for _, e := range entries {
		if err := fd.record(f.ctx, e.typ, f.actor.ID, e.taskID, string(e.typ)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		q    FeedQuery
		want int
	}{
		{"all", FeedQuery{}, 4},
		{"tasks group", FeedQuery{Type: "tasks"}, 2},
		{"comments group", FeedQuery{Type: "comments"}, 1},
		{"exact type", FeedQuery{Type: "document_created"}, 1},
		{"by task", FeedQuery{TaskID: f.task.ID}, 3},
		{"by agent", FeedQuery{AgentID: "nobody"}, 0},
		{"limit", FeedQuery{Limit: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Feed(f.ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}

	latest, _ := svc.Feed(f.ctx, FeedQuery{Limit: 1})
	if len(latest) != 1 || latest[0].Type != activity.TypeTaskUpdate {
		t.Errorf("feed should be newest first, got %+v", latest)
	}

	other := middleware.WithTenantID(context.Background(), otherTenant)
	if got, _ := svc.Feed(other, FeedQuery{}); len(got) != 0 {
		t.Errorf("other tenant sees %d entries", len(got))
	}
}

func TestActivityPurgeExpired(t *testing.T) {
	store := newMockStore()
	svc := NewActivityService(store)
	now := time.Now()
	short := 7
	ctx := middleware.WithTenantID(context.Background(), otherTenant)
	if _, err := store.UpdateTenantSettings(ctx, tenant.UpdateRequest{RetentionDays: &short}); err != nil {
		t.Fatal(err)
	}

	store.activities = []activity.Activity{
		{ID: "old-default", TenantID: defaultTenant, CreatedAt: now.AddDate(0, 0, -40)},
		{ID: "recent-default", TenantID: defaultTenant, CreatedAt: now.AddDate(0, 0, -10)},
		{ID: "old-short", TenantID: otherTenant, CreatedAt: now.AddDate(0, 0, -10)},
		{ID: "fresh-short", TenantID: otherTenant, CreatedAt: now.AddDate(0, 0, -1)},
	}

	n, err := svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("purged %d, want 2", n)
	}
	for _, a := range store.activities {
		if a.ID == "old-default" || a.ID == "old-short" {
			t.Errorf("%s should have been purged", a.ID)
		}
	}
}

func TestSettings(t *testing.T) {
	store := newMockStore()
	svc := NewSettingsService(store)
	ctx := middleware.WithTenantID(context.Background(), defaultTenant)

	got, err := svc.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.RetentionDays != tenant.DefaultRetentionDays {
		t.Errorf("retention = %d, want default", got.RetentionDays)
	}

	days := 14
	got, err = svc.Update(ctx, tenant.UpdateRequest{RetentionDays: &days, CompleteOnboarding: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.RetentionDays != 14 || got.OnboardingCompletedAt == nil {
		t.Errorf("unexpected settings %+v", got)
	}

	zero := 0
	if _, err := svc.Update(ctx, tenant.UpdateRequest{RetentionDays: &zero}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	negative := -5
	if _, err := svc.Update(ctx, tenant.UpdateRequest{DailyBudgetCents: &negative}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

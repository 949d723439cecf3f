package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/missioncontrol/internal/adapter/otel"
	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/usage"
	"github.com/Strob0t/missioncontrol/internal/port/billing"
	"github.com/Strob0t/missioncontrol/internal/port/database"
	"github.com/Strob0t/missioncontrol/internal/port/messagequeue"
)

// Default query ranges for usage history.
const (
	DefaultUsageDays     = 7
	DefaultUsageHours    = 48
	DefaultBackfillDays  = 30
	maxUsageHistoryDays  = 366
	maxUsageHistoryHours = 24 * 14
)

// UsageService answers usage and budget queries.
type UsageService struct {
	store database.Store
	now   func() time.Time
}

// NewUsageService creates a new UsageService.
func NewUsageService(store database.Store) *UsageService {
	return &UsageService{store: store, now: time.Now}
}

// Today returns today's usage together with the tenant's daily budget.
// A day without data reports zeros.
func (s *UsageService) Today(ctx context.Context) (*usage.Today, error) {
	key := usage.DateKey(s.now())
	rec, err := s.store.GetUsage(ctx, usage.Daily, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		rec = &usage.Record{Key: key}
	case err != nil:
		return nil, err
	}
	settings, err := s.store.GetTenantSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &usage.Today{Record: *rec, DailyBudgetCents: settings.DailyBudgetCents}, nil
}

// Daily returns the daily records of the last n days, including today.
func (s *UsageService) Daily(ctx context.Context, days int) ([]usage.Record, error) {
	if days <= 0 {
		days = DefaultUsageDays
	}
	days = min(days, maxUsageHistoryDays)
	from := usage.DateKey(s.now().AddDate(0, 0, -(days - 1)))
	return s.store.ListUsageSince(ctx, usage.Daily, from)
}

// Hourly returns the hourly records of the last n hours.
func (s *UsageService) Hourly(ctx context.Context, hours int) ([]usage.Record, error) {
	if hours <= 0 {
		hours = DefaultUsageHours
	}
	hours = min(hours, maxUsageHistoryHours)
	from := usage.HourKey(s.now().Add(-time.Duration(hours) * time.Hour).Truncate(time.Hour))
	return s.store.ListUsageSince(ctx, usage.Hourly, from)
}

// ReconcileResult summarizes one reconciliation.
type ReconcileResult struct {
	Granularity usage.Granularity `json:"granularity"`
	Buckets     int               `json:"buckets"`
	CostOK      bool              `json:"cost_ok"`
	UsageOK     bool              `json:"usage_ok"`
}

// UsageReconciler pulls cost and token reports from the billing API and
// stores one record per bucket.
type UsageReconciler struct {
	store   database.Store
	billing billing.Client
	queue   messagequeue.Queue
	metrics *cfotel.Metrics
	now     func() time.Time
}

// NewUsageReconciler creates a UsageReconciler. queue may be nil.
func NewUsageReconciler(store database.Store, client billing.Client, queue messagequeue.Queue) *UsageReconciler {
	return &UsageReconciler{store: store, billing: client, queue: queue, now: time.Now}
}

// SetMetrics enables metric recording.
func (r *UsageReconciler) SetMetrics(m *cfotel.Metrics) { r.metrics = m }

// ReconcileDaily refreshes the daily buckets from two days ago through today.
func (r *UsageReconciler) ReconcileDaily(ctx context.Context) (ReconcileResult, error) {
	return r.reconcile(ctx, usage.Daily, usage.DailyWindow(r.now()))
}

// ReconcileHourly refreshes the hourly buckets of the last 48 hours.
func (r *UsageReconciler) ReconcileHourly(ctx context.Context) (ReconcileResult, error) {
	return r.reconcile(ctx, usage.Hourly, usage.HourlyWindow(r.now()))
}

// Backfill refreshes the daily buckets of the last n days.
func (r *UsageReconciler) Backfill(ctx context.Context, days int) (ReconcileResult, error) {
	if days <= 0 {
		days = DefaultBackfillDays
	}
	return r.reconcile(ctx, usage.Daily, usage.BackfillWindow(r.now(), days))
}

// reconcile fetches both reports concurrently. A failed report is logged and
// its columns are left untouched; the call fails only when both reports fail
// or the store rejects the write.
func (r *UsageReconciler) reconcile(ctx context.Context, g usage.Granularity, w usage.Window) (ReconcileResult, error) {
	ctx, span := cfotel.StartReconcileSpan(ctx, string(g))
	defer span.End()

	q := billing.Query{Start: w.Start, End: w.End, Width: g}
	var (
		costs   []billing.CostBucket
		tokens  []billing.UsageBucket
		costErr error
		useErr  error
		eg      errgroup.Group
	)
	eg.Go(func() error {
		costs, costErr = r.billing.CostReport(ctx, q)
		return nil
	})
	eg.Go(func() error {
		tokens, useErr = r.billing.UsageReport(ctx, q)
		return nil
	})
	_ = eg.Wait()

	keyOf := usage.DateKey
	if g == usage.Hourly {
		keyOf = usage.HourKey
	}

	res := ReconcileResult{Granularity: g, CostOK: costErr == nil, UsageOK: useErr == nil}
	acc := usage.NewAccumulator()
	if costErr != nil {
		slog.WarnContext(ctx, "cost report failed", "granularity", g, "error", costErr)
		r.metrics.RecordUsageFailure(ctx, "cost")
	} else {
		for _, c := range costs {
			acc.AddCost(keyOf(c.StartingAt), c.Cents)
		}
	}
	if useErr != nil {
		slog.WarnContext(ctx, "usage report failed", "granularity", g, "error", useErr)
		r.metrics.RecordUsageFailure(ctx, "usage")
	} else {
		for _, u := range tokens {
			acc.AddTokens(keyOf(u.StartingAt), u.Tokens)
		}
	}
	if costErr != nil && useErr != nil {
		err := errors.Join(costErr, useErr)
		span.RecordError(err)
		return res, fmt.Errorf("reconcile %s usage: %w", g, err)
	}

	buckets := acc.Buckets()
	if len(buckets) > 0 {
		if err := r.store.UpsertUsage(ctx, g, buckets); err != nil {
			span.RecordError(err)
			return res, fmt.Errorf("store %s usage: %w", g, err)
		}
	}
	res.Buckets = len(buckets)
	r.metrics.RecordUsage(ctx, string(g), res.Buckets)
	slog.InfoContext(ctx, "usage reconciled", "granularity", g, "buckets", res.Buckets,
		"cost_ok", res.CostOK, "usage_ok", res.UsageOK)

	r.announce(ctx, res)
	return res, nil
}

func (r *UsageReconciler) announce(ctx context.Context, res ReconcileResult) {
	if r.queue == nil {
		return
	}
	data, err := json.Marshal(messagequeue.UsageUpdatedPayload{
		Granularity: res.Granularity,
		Buckets:     res.Buckets,
		CostOK:      res.CostOK,
		UsageOK:     res.UsageOK,
		At:          r.now().UTC(),
	})
	if err != nil {
		return
	}
	if err := r.queue.Publish(ctx, messagequeue.SubjectUsageUpdated, data); err != nil {
		slog.WarnContext(ctx, "failed to publish usage update", "error", err)
	}
}

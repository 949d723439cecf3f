package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// SchedulerJob is a named periodic task.
type SchedulerJob struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs periodic maintenance jobs such as usage reconciliation and
// activity retention. A job that is still running when its next tick fires
// is skipped.
type Scheduler struct {
	cron *cronlib.Cron

	mu   sync.Mutex
	base context.Context
	stop context.CancelFunc
}

var scheduleParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// NewScheduler creates a stopped Scheduler.
func NewScheduler() *Scheduler {
	log := cronLogger{}
	return &Scheduler{
		cron: cronlib.New(
			cronlib.WithParser(scheduleParser),
			cronlib.WithLogger(log),
			cronlib.WithChain(cronlib.Recover(log), cronlib.SkipIfStillRunning(log)),
		),
		base: context.Background(),
	}
}

// Add registers a job. Jobs should be added before Start.
func (s *Scheduler) Add(job SchedulerJob) error {
	if job.Run == nil {
		return fmt.Errorf("job %s: no run func", job.Name)
	}
	_, err := s.cron.AddFunc(job.Spec, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("job %s: parse %q: %w", job.Name, job.Spec, err)
	}
	return nil
}

func (s *Scheduler) run(job SchedulerJob) {
	s.mu.Lock()
	ctx := s.base
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "scheduled job failed", "job", job.Name, "error", err)
		return
	}
	slog.DebugContext(ctx, "scheduled job finished", "job", job.Name, "duration", time.Since(start))
}

// Start begins firing jobs. Running jobs see ctx cancelled on Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base, s.stop = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the schedule and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stop != nil {
		s.stop()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// MaintenanceSchedules holds the cron specs of the built-in jobs.
type MaintenanceSchedules struct {
	Daily     string
	Hourly    string
	Retention string
}

// RegisterMaintenance adds the usage reconciliation and activity retention
// jobs. A nil reconciler skips the usage jobs.
func RegisterMaintenance(s *Scheduler, specs MaintenanceSchedules, rec *UsageReconciler, activities *ActivityService) error {
	var jobs []SchedulerJob
	if rec != nil {
		jobs = append(jobs,
			SchedulerJob{Name: "usage-daily", Spec: specs.Daily, Timeout: 5 * time.Minute, Run: func(ctx context.Context) error {
				_, err := rec.ReconcileDaily(ctx)
				return err
			}},
			SchedulerJob{Name: "usage-hourly", Spec: specs.Hourly, Timeout: 5 * time.Minute, Run: func(ctx context.Context) error {
				_, err := rec.ReconcileHourly(ctx)
				return err
			}},
		)
	}
	jobs = append(jobs, SchedulerJob{Name: "activity-retention", Spec: specs.Retention, Timeout: 10 * time.Minute, Run: func(ctx context.Context) error {
		_, err := activities.PurgeExpired(ctx)
		return err
	}})
	for _, j := range jobs {
		if err := s.Add(j); err != nil {
			return err
		}
	}
	return nil
}

/*
scheduler.go - Notification job scheduler

PURPOSE:
  Runs the four notification jobs at their configured local times and
  records every attempt in the job run log.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - A job is due once its local time of day has passed (and, for weekly jobs,
    on its weekday) in the configured time zone
  - Skips jobs that already completed a scheduled run for today's date, so
    restarts and short check intervals never send twice
  - A due job missed while the service was down still runs later that day
  - Manual runs (RunNow) always execute and never count as the scheduled run

CONFIGURATION:
  - jobs.check_interval: How often to check (default: 1 minute)
  - jobs.enabled:        Whether the scheduler is active (default: true)
  - jobs.timezone:       Zone used for due times and run dates

USAGE:
  scheduler, err := NewJobScheduler(store, runner, cfg.Jobs, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunJob endpoint (manual trigger)
  - notify/jobs.go: Job definitions
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/shift-engine/config"
	"github.com/warp/shift-engine/metrics"
	"github.com/warp/shift-engine/notify"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned when a job name doesn't match any notification job.
var ErrUnknownJob = errors.New("unknown job")

const runDateLayout = "2006-01-02"

// JobSchedule is when one job becomes due each day.
type JobSchedule struct {
	Job     notify.Job
	At      shift.Clock
	Weekday *time.Weekday // nil runs every day
}

// DueOn reports whether the schedule is due at local time t.
func (s JobSchedule) DueOn(t time.Time) bool {
	if s.Weekday != nil && t.Weekday() != *s.Weekday {
		return false
	}
	return t.Hour()*60+t.Minute() >= int(s.At)
}

// JobScheduler runs notification jobs on a ticker.
type JobScheduler struct {
	Runs          store.RunLog
	Runner        *notify.Runner
	Schedules     []JobSchedule
	Location      *time.Location
	CheckInterval time.Duration
	Enabled       bool
	Logger        *zap.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// runMu serializes job runs between the ticker and manual triggers.
	runMu sync.Mutex
}

// NewJobScheduler builds a scheduler from the jobs configuration.
func NewJobScheduler(runs store.RunLog, runner *notify.Runner, cfg config.JobsConfig, logger *zap.Logger) (*JobScheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("jobs timezone: %w", err)
	}

	byName := map[string]config.ScheduleConfig{
		notify.JobDailyDigest:      cfg.DailyDigest,
		notify.JobVacationNotice:   cfg.VacationNotice,
		notify.JobWeeklySummary:    cfg.WeeklySummary,
		notify.JobWeeklyCompliance: cfg.WeeklyCompliance,
	}
	var schedules []JobSchedule
	for _, job := range notify.Jobs() {
		at, weekday, err := byName[job.Name].Parse()
		if err != nil {
			return nil, fmt.Errorf("schedule for %s: %w", job.Name, err)
		}
		schedules = append(schedules, JobSchedule{Job: job, At: at, Weekday: weekday})
	}

	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}

	return &JobScheduler{
		Runs:          runs,
		Runner:        runner,
		Schedules:     schedules,
		Location:      loc,
		CheckInterval: interval,
		Enabled:       cfg.Enabled,
		Logger:        logger.Named("scheduler"),
		Now:           time.Now,
	}, nil
}

// Start begins the scheduler.
func (js *JobScheduler) Start() {
	js.mu.Lock()
	defer js.mu.Unlock()

	if !js.Enabled {
		js.Logger.Info("disabled, not starting")
		return
	}
	if js.ticker != nil {
		return
	}

	js.ticker = time.NewTicker(js.CheckInterval)
	js.stop = make(chan struct{})
	js.wg.Add(1)

	go js.run(js.ticker, js.stop)

	js.Logger.Info("started", zap.Duration("check_interval", js.CheckInterval), zap.String("timezone", js.Location.String()))
}

// Stop stops the scheduler and waits for an in-flight check to finish.
func (js *JobScheduler) Stop() {
	js.mu.Lock()
	defer js.mu.Unlock()

	if js.ticker != nil {
		js.ticker.Stop()
		close(js.stop)
		js.wg.Wait()
		js.ticker = nil
		js.Logger.Info("stopped")
	}
}

func (js *JobScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer js.wg.Done()

	// Run immediately on start
	js.CheckAndRun(context.Background())

	for {
		select {
		case <-ticker.C:
			js.CheckAndRun(context.Background())
		case <-stop:
			return
		}
	}
}

// CheckAndRun runs every job that is due and hasn't completed today.
// It returns the runs it attempted.
func (js *JobScheduler) CheckAndRun(ctx context.Context) []store.JobRun {
	now := js.Now().In(js.Location)
	runDate := now.Format(runDateLayout)

	var attempted []store.JobRun
	skipped := 0
	for _, s := range js.Schedules {
		if !s.DueOn(now) {
			continue
		}
		done, err := js.Runs.IsJobRunComplete(ctx, s.Job.Name, runDate)
		if err != nil {
			js.Logger.Error("checking run status", zap.String("job", s.Job.Name), zap.Error(err))
			continue
		}
		if done {
			skipped++
			continue
		}
		run, err := js.execute(ctx, s.Job, store.TriggerSchedule, now)
		if err != nil {
			js.Logger.Error("job failed", zap.String("job", s.Job.Name), zap.Error(err))
		}
		attempted = append(attempted, run)
	}

	if len(attempted) > 0 {
		js.Logger.Info("check completed", zap.Int("ran", len(attempted)), zap.Int("skipped", skipped))
	}
	return attempted
}

// RunNow runs the named job immediately, regardless of its schedule.
func (js *JobScheduler) RunNow(ctx context.Context, name string) (store.JobRun, error) {
	job, ok := notify.Lookup(name)
	if !ok {
		return store.JobRun{}, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return js.execute(ctx, job, store.TriggerManual, js.Now().In(js.Location))
}

// execute runs one job and records the attempt. The returned run reflects
// the final status even when err is non-nil.
func (js *JobScheduler) execute(ctx context.Context, job notify.Job, trigger store.Trigger, now time.Time) (store.JobRun, error) {
	js.runMu.Lock()
	defer js.runMu.Unlock()

	started := js.Now()
	run := store.JobRun{
		ID:        uuid.NewString(),
		Job:       job.Name,
		Trigger:   trigger,
		RunDate:   now.Format(runDateLayout),
		Week:      job.Week(now).String(),
		Status:    store.RunRunning,
		StartedAt: &started,
		CreatedAt: started,
	}
	if err := js.Runs.SaveJobRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save run record: %w", err)
	}

	outcome, err := js.Runner.Run(ctx, job, now)
	completed := js.Now()
	run.CompletedAt = &completed
	run.Messages = outcome.Messages

	result := string(store.RunCompleted)
	if err != nil {
		run.Status = store.RunFailed
		run.Error = err.Error()
		result = string(store.RunFailed)
	} else {
		run.Status = store.RunCompleted
	}
	metrics.ObserveJobRun(job.Name, result, completed.Sub(started))

	if saveErr := js.Runs.SaveJobRun(ctx, run); saveErr != nil {
		return run, errors.Join(err, fmt.Errorf("failed to update run record: %w", saveErr))
	}

	js.Logger.Info("job run finished",
		zap.String("job", job.Name),
		zap.String("trigger", string(trigger)),
		zap.String("week", run.Week),
		zap.String("status", string(run.Status)),
		zap.Int("messages", run.Messages),
	)
	return run, err
}

// NextDue returns the next local time each job becomes due, from the
// current clock.
func (js *JobScheduler) NextDue() map[string]time.Time {
	now := js.Now().In(js.Location)
	out := make(map[string]time.Time, len(js.Schedules))
	for _, s := range js.Schedules {
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, js.Location)
		for i := 0; i < 8; i++ {
			at := day.AddDate(0, 0, i).Add(time.Duration(s.At) * time.Minute)
			if at.After(now) && (s.Weekday == nil || at.Weekday() == *s.Weekday) {
				out[s.Job.Name] = at
				break
			}
		}
	}
	return out
}

package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/config"
	"github.com/warp/shift-engine/notify"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store"
	"github.com/warp/shift-engine/store/memory"
	"go.uber.org/zap/zaptest"
)

// flakyMailer fails while failing is set and records what it sent otherwise.
type flakyMailer struct {
	mu      sync.Mutex
	failing bool
	sent    []notify.Message
}

func (m *flakyMailer) Send(_ context.Context, msgs []notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msgs...)
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestScheduler(t *testing.T, mailer notify.Mailer) (*JobScheduler, *memory.Memory, *clock) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mem := memory.New()
	runner := notify.NewRunner(mem, mailer, logger)

	js, err := NewJobScheduler(mem, runner, config.Default().Jobs, logger)
	require.NoError(t, err)

	clk := &clock{now: testNow}
	js.Now = clk.Now
	return js, mem, clk
}

func costaRica(t *testing.T, year int, month time.Month, day, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Costa_Rica")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func jobNames(runs []store.JobRun) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.Job
	}
	return out
}

func TestNewJobScheduler_InvalidConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mem := memory.New()
	runner := notify.NewRunner(mem, &flakyMailer{}, logger)

	cfg := config.Default().Jobs
	cfg.Timezone = "Mars/Olympus"
	_, err := NewJobScheduler(mem, runner, cfg, logger)
	assert.Error(t, err)

	cfg = config.Default().Jobs
	cfg.WeeklySummary.Time = "25:00"
	_, err = NewJobScheduler(mem, runner, cfg, logger)
	assert.Error(t, err)
}

func TestJobSchedule_DueOn(t *testing.T) {
	friday := time.Friday
	daily := JobSchedule{At: shift.MustClock("06:30")}
	weekly := JobSchedule{At: shift.MustClock("14:00"), Weekday: &friday}

	tests := []struct {
		name     string
		schedule JobSchedule
		at       time.Time
		want     bool
	}{
		{"daily before time", daily, time.Date(2026, 10, 14, 6, 29, 0, 0, time.UTC), false},
		{"daily at time", daily, time.Date(2026, 10, 14, 6, 30, 0, 0, time.UTC), true},
		{"daily later that day", daily, time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC), true},
		{"weekly wrong day", weekly, time.Date(2026, 10, 15, 15, 0, 0, 0, time.UTC), false},
		{"weekly right day early", weekly, time.Date(2026, 10, 16, 13, 59, 0, 0, time.UTC), false},
		{"weekly right day", weekly, time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.schedule.DueOn(tt.at))
		})
	}
}

func TestCheckAndRun_RunsDueJobsOncePerDay(t *testing.T) {
	// GIVEN: Wednesday 10:00 local, after the digest time
	js, mem, clk := newTestScheduler(t, &flakyMailer{})
	ctx := context.Background()

	// WHEN: Checking twice
	first := js.CheckAndRun(ctx)
	second := js.CheckAndRun(ctx)

	// THEN: Only the digest runs, and only once
	assert.Equal(t, []string{notify.JobDailyDigest}, jobNames(first))
	assert.Equal(t, store.RunCompleted, first[0].Status)
	assert.Equal(t, store.TriggerSchedule, first[0].Trigger)
	assert.Equal(t, "2026-10-14", first[0].RunDate)
	assert.Empty(t, second)

	// AND: Friday afternoon brings the weekly jobs and a new digest
	clk.Set(costaRica(t, 2026, time.October, 16, 14, 45))
	third := js.CheckAndRun(ctx)
	assert.ElementsMatch(t, []string{notify.JobDailyDigest, notify.JobWeeklySummary, notify.JobWeeklyCompliance}, jobNames(third))
	for _, r := range third {
		if r.Job != notify.JobDailyDigest {
			assert.Equal(t, "2026-43", r.Week, r.Job)
		}
	}

	runs, err := mem.ListJobRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}

func TestCheckAndRun_ManualRunDoesNotBlockSchedule(t *testing.T) {
	js, _, _ := newTestScheduler(t, &flakyMailer{})
	ctx := context.Background()

	manual, err := js.RunNow(ctx, notify.JobDailyDigest)
	require.NoError(t, err)
	assert.Equal(t, store.TriggerManual, manual.Trigger)
	assert.Equal(t, store.RunCompleted, manual.Status)

	runs := js.CheckAndRun(ctx)
	assert.Equal(t, []string{notify.JobDailyDigest}, jobNames(runs))
}

func TestCheckAndRun_FailedRunIsRetried(t *testing.T) {
	// GIVEN: A user teleworking today and a mailer that is down
	mailer := &flakyMailer{failing: true}
	js, mem, _ := newTestScheduler(t, mailer)
	ctx := context.Background()
	require.NoError(t, mem.SaveUser(ctx, agent("jose", "José", "Alfaro", "Finanzas", roster.ContractConfianza)))
	entry, err := shift.NewEntry(worked(shift.KindTelework, "08:00", "16:00"))
	require.NoError(t, err)
	require.NoError(t, mem.PutDay(ctx, "jose", shift.WeekOf(testNow), shift.Wednesday, entry))

	// WHEN: The first check fails
	failed := js.CheckAndRun(ctx)
	require.Len(t, failed, 1)
	assert.Equal(t, store.RunFailed, failed[0].Status)
	assert.Contains(t, failed[0].Error, "smtp unavailable")
	require.NotNil(t, failed[0].CompletedAt)

	// THEN: The next check retries once the mailer recovers
	mailer.mu.Lock()
	mailer.failing = false
	mailer.mu.Unlock()

	retried := js.CheckAndRun(ctx)
	require.Len(t, retried, 1)
	assert.Equal(t, store.RunCompleted, retried[0].Status)
	assert.Equal(t, 1, retried[0].Messages)
	assert.Len(t, mailer.sent, 1)
	assert.Empty(t, js.CheckAndRun(ctx))
}

func TestRunNow_UnknownJob(t *testing.T) {
	js, _, _ := newTestScheduler(t, &flakyMailer{})
	_, err := js.RunNow(context.Background(), "payroll")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestNextDue(t *testing.T) {
	js, _, _ := newTestScheduler(t, &flakyMailer{})

	next := js.NextDue()

	require.Len(t, next, 4)
	assert.True(t, costaRica(t, 2026, time.October, 15, 6, 30).Equal(next[notify.JobDailyDigest]))
	assert.True(t, costaRica(t, 2026, time.October, 14, 15, 0).Equal(next[notify.JobVacationNotice]))
	assert.True(t, costaRica(t, 2026, time.October, 16, 14, 0).Equal(next[notify.JobWeeklySummary]))
}

func TestStartStop(t *testing.T) {
	js, mem, _ := newTestScheduler(t, &flakyMailer{})
	js.CheckInterval = time.Hour

	js.Start()
	js.Start() // already running
	js.Stop()

	// The immediate check on start ran the digest before Stop returned.
	runs, err := mem.ListJobRuns(context.Background(), notify.JobDailyDigest)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// Restartable after Stop
	js.Start()
	js.Stop()
	js.Stop()
}

func TestStart_Disabled(t *testing.T) {
	js, mem, _ := newTestScheduler(t, &flakyMailer{})
	js.Enabled = false

	js.Start()
	js.Stop()

	runs, err := mem.ListJobRuns(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

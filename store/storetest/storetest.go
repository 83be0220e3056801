// Package storetest holds the behaviour every store implementation must share.
// Implementation packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/notify"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store"
)

// Backend is a store that also queues outgoing messages.
type Backend interface {
	store.Store
	notify.Outbox
	ListOutbox(ctx context.Context, limit int) ([]notify.Message, error)
}

// Run exercises a fresh backend from newBackend in each subtest.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newBackend(t)) })
	t.Run("Schedules", func(t *testing.T) { testSchedules(t, newBackend(t)) })
	t.Run("WeekSnapshot", func(t *testing.T) { testWeekSnapshot(t, newBackend(t)) })
	t.Run("JobRuns", func(t *testing.T) { testJobRuns(t, newBackend(t)) })
	t.Run("Outbox", func(t *testing.T) { testOutbox(t, newBackend(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newBackend(t)) })
	t.Run("ExplicitHours", func(t *testing.T) { testExplicitHours(t, newBackend(t)) })
}

var week = shift.WeekID{Year: 2026, Week: 42}

func ana() roster.User {
	return roster.User{
		ID:         "u1",
		FirstName:  "Ana",
		LastName:   "Rojas",
		Email:      "ana@example.com",
		Department: "Soporte",
		Contract:   roster.ContractConfianza,
		Role:       roster.RoleModifier,
	}
}

func trainee() roster.User {
	return roster.User{
		ID:                    "u2",
		FirstName:             "Leo",
		Department:            roster.TraineeDepartment,
		Contract:              roster.ContractOperativo,
		AuthorizedDepartments: []string{"Soporte", "Finanzas"},
	}
}

func mustEntry(t *testing.T, raw shift.RawEntry) shift.DayEntry {
	t.Helper()
	e, err := shift.NewEntry(raw)
	require.NoError(t, err)
	return e
}

func testUsers(t *testing.T, b Backend) {
	ctx := context.Background()

	// GIVEN: two users
	require.NoError(t, b.SaveUser(ctx, trainee()))
	require.NoError(t, b.SaveUser(ctx, ana()))

	// WHEN: listing
	users, err := b.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, roster.UserID("u1"), users[0].ID)
	assert.Equal(t, []string{"Soporte", "Finanzas"}, users[1].AuthorizedDepartments)

	got, err := b.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ana(), got)

	// WHEN: saving again, the user is replaced
	updated := ana()
	updated.Department = "Finanzas"
	require.NoError(t, b.SaveUser(ctx, updated))
	got, err = b.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Finanzas", got.Department)

	_, err = b.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func testSchedules(t *testing.T, b Backend) {
	ctx := context.Background()
	require.NoError(t, b.SaveUser(ctx, ana()))

	// Missing weeks are empty, not errors.
	s, err := b.GetWeek(ctx, "u1", week)
	require.NoError(t, err)
	assert.Empty(t, s)

	hybrid := mustEntry(t, shift.RawEntry{
		Tipo:           string(shift.KindHybrid),
		HoraInicioTele: "06:00",
		HoraFinTele:    "09:00",
		HoraInicioPres: "10:00",
		HoraFinPres:    "15:30",
		Nota:           "visita cliente",
	})
	night := mustEntry(t, shift.RawEntry{Tipo: string(shift.KindPresence), HoraInicio: "22:00", HoraFin: "06:00"})
	legacy, err := shift.Normalize(shift.RawEntry{Legacy: true, Tipo: string(shift.KindVacation)})
	require.NoError(t, err)

	require.NoError(t, b.PutDay(ctx, "u1", week, shift.Monday, hybrid))
	require.NoError(t, b.PutDay(ctx, "u1", week, shift.Tuesday, night))
	require.NoError(t, b.PutDay(ctx, "u1", week, shift.Friday, legacy))

	s, err = b.GetWeek(ctx, "u1", week)
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.True(t, s[shift.Monday].Hours.Equal(hybrid.Hours))
	assert.Equal(t, "visita cliente", s[shift.Monday].Note)
	require.NotNil(t, s[shift.Tuesday].Range)
	assert.Equal(t, "22:00", s[shift.Tuesday].Range.Start.String())
	assert.True(t, s[shift.Tuesday].Hours.Equal(night.Hours))
	assert.Equal(t, shift.KindVacation, s[shift.Friday].Kind)

	// Other weeks stay untouched.
	other, err := b.GetWeek(ctx, "u1", week.Next())
	require.NoError(t, err)
	assert.Empty(t, other)

	// Overwrite then delete.
	require.NoError(t, b.PutDay(ctx, "u1", week, shift.Tuesday, shift.DayEntry{Kind: shift.KindRest}))
	require.NoError(t, b.DeleteDay(ctx, "u1", week, shift.Monday))
	require.NoError(t, b.DeleteDay(ctx, "u1", week, shift.Sunday))

	s, err = b.GetWeek(ctx, "u1", week)
	require.NoError(t, err)
	assert.Equal(t, []shift.DaySlot{shift.Tuesday, shift.Friday}, s.Slots())
	assert.Equal(t, shift.KindRest, s[shift.Tuesday].Kind)

	// Unknown users and slots are rejected.
	assert.ErrorIs(t, b.PutDay(ctx, "ghost", week, shift.Monday, night), store.ErrUserNotFound)
	assert.ErrorIs(t, b.PutDay(ctx, "u1", week, shift.DaySlot(8), night), shift.ErrInvalidSlot)
}

func testExplicitHours(t *testing.T, b Backend) {
	ctx := context.Background()
	require.NoError(t, b.SaveUser(ctx, ana()))

	// GIVEN: entries whose explicit totals differ from their ranges
	five, ten := 5.0, 10.0
	single := mustEntry(t, shift.RawEntry{Tipo: string(shift.KindPresence), HoraInicio: "08:00", HoraFin: "17:00", Horas: &five})
	mixed := mustEntry(t, shift.RawEntry{
		Tipo:           string(shift.KindHybrid),
		HoraInicioTele: "07:00",
		HoraFinTele:    "10:00",
		HoraInicioPres: "11:00",
		HoraFinPres:    "16:00",
		Horas:          &ten,
	})
	require.NoError(t, b.PutDay(ctx, "u1", week, shift.Monday, single))
	require.NoError(t, b.PutDay(ctx, "u1", week, shift.Tuesday, mixed))

	// WHEN: reading the week back
	s, err := b.GetWeek(ctx, "u1", week)
	require.NoError(t, err)

	// THEN: the saved totals win over the ranges
	assert.True(t, s[shift.Monday].Hours.Equal(decimal.NewFromInt(5)), s[shift.Monday].Hours.String())
	assert.True(t, s[shift.Tuesday].Hours.Equal(decimal.NewFromInt(10)), s[shift.Tuesday].Hours.String())
	assert.True(t, s[shift.Monday].ExplicitHours)
	require.NotNil(t, s[shift.Monday].Range)
	assert.Equal(t, "17:00", s[shift.Monday].Range.End.String())
}

func testWeekSnapshot(t *testing.T, b Backend) {
	ctx := context.Background()
	require.NoError(t, b.SaveUser(ctx, ana()))
	require.NoError(t, b.SaveUser(ctx, trainee()))

	day := mustEntry(t, shift.RawEntry{Tipo: string(shift.KindPresence), HoraInicio: "08:00", HoraFin: "17:00"})
	require.NoError(t, b.PutDay(ctx, "u1", week, shift.Monday, day))
	require.NoError(t, b.PutDay(ctx, "u1", week, shift.Tuesday, day))
	require.NoError(t, b.PutDay(ctx, "u2", week.Next(), shift.Monday, day))

	snap, err := b.WeekSnapshot(ctx, week)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Len(t, snap["u1"], 2)
	assert.NotContains(t, snap, roster.UserID("u2"))

	// The snapshot is a copy.
	snap["u1"][shift.Wednesday] = day
	again, err := b.GetWeek(ctx, "u1", week)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

func testJobRuns(t *testing.T, b Backend) {
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)

	done, err := b.IsJobRunComplete(ctx, notify.JobDailyDigest, "2026-10-14")
	require.NoError(t, err)
	assert.False(t, done)

	// A manual run never counts towards the daily check.
	manual := store.JobRun{
		ID:        "run-1",
		Job:       notify.JobDailyDigest,
		Trigger:   store.TriggerManual,
		RunDate:   "2026-10-14",
		Status:    store.RunCompleted,
		CreatedAt: base,
	}
	require.NoError(t, b.SaveJobRun(ctx, manual))
	done, err = b.IsJobRunComplete(ctx, notify.JobDailyDigest, "2026-10-14")
	require.NoError(t, err)
	assert.False(t, done)

	// A scheduled run goes running -> completed under the same ID.
	started := base.Add(time.Minute)
	run := store.JobRun{
		ID:        "run-2",
		Job:       notify.JobDailyDigest,
		Trigger:   store.TriggerSchedule,
		RunDate:   "2026-10-14",
		Week:      "2026-42",
		Status:    store.RunRunning,
		StartedAt: &started,
		CreatedAt: started,
	}
	require.NoError(t, b.SaveJobRun(ctx, run))
	done, err = b.IsJobRunComplete(ctx, notify.JobDailyDigest, "2026-10-14")
	require.NoError(t, err)
	assert.False(t, done)

	completed := started.Add(time.Second)
	run.Status = store.RunCompleted
	run.Messages = 1
	run.CompletedAt = &completed
	require.NoError(t, b.SaveJobRun(ctx, run))

	done, err = b.IsJobRunComplete(ctx, notify.JobDailyDigest, "2026-10-14")
	require.NoError(t, err)
	assert.True(t, done)

	other := store.JobRun{
		ID:        "run-3",
		Job:       notify.JobWeeklySummary,
		Trigger:   store.TriggerSchedule,
		RunDate:   "2026-10-14",
		Status:    store.RunFailed,
		Error:     "boom",
		CreatedAt: base.Add(2 * time.Minute),
	}
	require.NoError(t, b.SaveJobRun(ctx, other))

	all, err := b.ListJobRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"run-3", "run-2", "run-1"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "boom", all[0].Error)
	assert.Equal(t, 1, all[1].Messages)
	require.NotNil(t, all[1].CompletedAt)
	assert.True(t, completed.Equal(*all[1].CompletedAt))

	digest, err := b.ListJobRuns(ctx, notify.JobDailyDigest)
	require.NoError(t, err)
	assert.Len(t, digest, 2)
}

func testOutbox(t *testing.T, b Backend) {
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)

	require.NoError(t, b.Enqueue(ctx, nil))
	require.NoError(t, b.Enqueue(ctx, []notify.Message{
		{ID: "m1", Job: notify.JobDailyDigest, To: []string{"a@example.com"}, Subject: "one", Body: "first", CreatedAt: now},
		{ID: "m2", Job: notify.JobDailyDigest, To: []string{"a@example.com", "b@example.com"}, Subject: "two", Body: "second", CreatedAt: now},
	}))

	msgs, err := b.ListOutbox(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msgs[0].To)
	assert.True(t, now.Equal(msgs[0].CreatedAt))

	limited, err := b.ListOutbox(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func testReset(t *testing.T, b Backend) {
	ctx := context.Background()
	require.NoError(t, b.SaveUser(ctx, ana()))
	require.NoError(t, b.PutDay(ctx, ana().ID, week, shift.Monday, mustEntry(t, shift.RawEntry{Tipo: string(shift.KindPresence), HoraInicio: "08:00", HoraFin: "16:00"})))
	require.NoError(t, b.SaveJobRun(ctx, store.JobRun{ID: "run-1", Job: notify.JobDailyDigest, Trigger: store.TriggerSchedule, RunDate: "2026-10-14", Status: store.RunCompleted, CreatedAt: time.Now()}))
	require.NoError(t, b.Enqueue(ctx, []notify.Message{{ID: "m1", Job: notify.JobDailyDigest, Subject: "kept"}}))

	require.NoError(t, b.Reset(ctx))

	users, err := b.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	snap, err := b.WeekSnapshot(ctx, week)
	require.NoError(t, err)
	assert.Empty(t, snap)

	runs, err := b.ListJobRuns(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, runs)

	msgs, err := b.ListOutbox(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	// Reset leaves a usable store
	require.NoError(t, b.SaveUser(ctx, ana()))
}

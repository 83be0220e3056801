// Package memory provides an in-memory store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/shift-engine/notify"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	users  map[roster.UserID]roster.User
	days   map[key]shift.WeeklySchedule
	runs   map[string]store.JobRun
	outbox []notify.Message
}

type key struct {
	UserID roster.UserID
	Week   shift.WeekID
}

func New() *Memory {
	return &Memory{
		users: make(map[roster.UserID]roster.User),
		days:  make(map[key]shift.WeeklySchedule),
		runs:  make(map[string]store.JobRun),
	}
}

// =============================================================================
// DIRECTORY
// =============================================================================

// ListUsers returns users ordered by ID.
func (m *Memory) ListUsers(_ context.Context) ([]roster.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]roster.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetUser(_ context.Context, id roster.UserID) (roster.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return roster.User{}, store.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *Memory) SaveUser(_ context.Context, u roster.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = cloneUser(u)
	return nil
}

func cloneUser(u roster.User) roster.User {
	u.AuthorizedDepartments = append([]string(nil), u.AuthorizedDepartments...)
	return u
}

// =============================================================================
// SCHEDULES
// =============================================================================

func (m *Memory) GetWeek(_ context.Context, id roster.UserID, week shift.WeekID) (shift.WeeklySchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.days[key{UserID: id, Week: week}].Clone(), nil
}

func (m *Memory) WeekSnapshot(_ context.Context, week shift.WeekID) (map[roster.UserID]shift.WeeklySchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[roster.UserID]shift.WeeklySchedule)
	for k, s := range m.days {
		if k.Week != week || len(s) == 0 {
			continue
		}
		out[k.UserID] = s.Clone()
	}
	return out, nil
}

func (m *Memory) PutDay(_ context.Context, id roster.UserID, week shift.WeekID, slot shift.DaySlot, entry shift.DayEntry) error {
	if !slot.Valid() {
		return shift.ErrInvalidSlot
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return store.ErrUserNotFound
	}
	k := key{UserID: id, Week: week}
	m.days[k] = m.days[k].With(slot, entry)
	return nil
}

func (m *Memory) DeleteDay(_ context.Context, id roster.UserID, week shift.WeekID, slot shift.DaySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{UserID: id, Week: week}
	s, ok := m.days[k]
	if !ok {
		return nil
	}
	s = s.Without(slot)
	if len(s) == 0 {
		delete(m.days, k)
		return nil
	}
	m.days[k] = s
	return nil
}

// =============================================================================
// RUN LOG
// =============================================================================

func (m *Memory) SaveJobRun(_ context.Context, r store.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r
	return nil
}

// ListJobRuns returns runs newest first.
func (m *Memory) ListJobRuns(_ context.Context, job string) ([]store.JobRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []store.JobRun
	for _, r := range m.runs {
		if job == "" || r.Job == job {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) IsJobRunComplete(_ context.Context, job, runDate string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.runs {
		if r.Job == job && r.RunDate == runDate && r.Trigger == store.TriggerSchedule && r.Status == store.RunCompleted {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// OUTBOX
// =============================================================================

func (m *Memory) Enqueue(_ context.Context, msgs []notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, msgs...)
	return nil
}

// ListOutbox returns up to limit queued messages, newest first. A limit of
// zero or less returns all of them.
func (m *Memory) ListOutbox(_ context.Context, limit int) ([]notify.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]notify.Message, 0, len(m.outbox))
	for i := len(m.outbox) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.outbox[i])
	}
	return out, nil
}

// Reset drops users, entries and job runs.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[roster.UserID]roster.User)
	m.days = make(map[key]shift.WeeklySchedule)
	m.runs = make(map[string]store.JobRun)
	return nil
}

// Compile-time interface checks.
var (
	_ store.Store   = (*Memory)(nil)
	_ notify.Outbox = (*Memory)(nil)
)

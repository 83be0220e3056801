/*
Package store defines the persistence interfaces around the compliance engine.

PURPOSE:
  The engine never talks to storage. Callers load snapshots through these
  interfaces, hand them to compliance/notify, and write back only on explicit
  user action. Different implementations can use SQLite or memory.

KEY INTERFACES:
  Directory: The user roster
  Schedules: Week-scoped day entries, one per (user, week, slot)
  RunLog:    Audit of scheduled job runs, used to avoid double runs

STORAGE SHAPE:
  Day entries are stored in their raw shape (shift.RawEntry JSON) and
  normalized on read, so legacy rows keep loading after new fields appear.

IMPLEMENTATIONS:
  - store/sqlite: SQLite via mattn/go-sqlite3
  - store/memory: In-memory for tests and local runs

SEE ALSO:
  - shift/entry.go: Normalization applied on read
  - notify/runner.go: Consumes Directory + Schedules snapshots
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// ErrUserNotFound is returned when a referenced user doesn't exist.
var ErrUserNotFound = errors.New("user not found")

// =============================================================================
// INTERFACES
// =============================================================================

// Directory holds the user roster.
type Directory interface {
	ListUsers(ctx context.Context) ([]roster.User, error)

	// GetUser returns ErrUserNotFound for unknown IDs.
	GetUser(ctx context.Context, id roster.UserID) (roster.User, error)

	// SaveUser creates or replaces a user.
	SaveUser(ctx context.Context, u roster.User) error
}

// Schedules holds day entries keyed by (user, ISO week, day slot).
type Schedules interface {
	// GetWeek returns one user's week. A week without entries is an empty
	// schedule, not an error.
	GetWeek(ctx context.Context, id roster.UserID, week shift.WeekID) (shift.WeeklySchedule, error)

	// WeekSnapshot returns every user's schedule for a week. Users without
	// entries are absent from the map.
	WeekSnapshot(ctx context.Context, week shift.WeekID) (map[roster.UserID]shift.WeeklySchedule, error)

	// PutDay creates or overwrites the entry for a day slot.
	PutDay(ctx context.Context, id roster.UserID, week shift.WeekID, slot shift.DaySlot, entry shift.DayEntry) error

	// DeleteDay removes the entry for a day slot. Removing a missing entry is a no-op.
	DeleteDay(ctx context.Context, id roster.UserID, week shift.WeekID, slot shift.DaySlot) error
}

// Store is the full persistence surface the API needs.
type Store interface {
	Directory
	Schedules
	RunLog

	// Reset removes all users, entries and job runs. Queued messages stay.
	Reset(ctx context.Context) error
}

// =============================================================================
// JOB RUNS
// =============================================================================

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Trigger says what started a run. Only scheduled runs count towards the
// once-per-day check; manual runs are always allowed.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// JobRun records one execution of a notification job.
type JobRun struct {
	ID          string
	Job         string
	Trigger     Trigger
	RunDate     string // YYYY-MM-DD in the scheduler's time zone
	Week        string // ISO week the job read
	Status      RunStatus
	Messages    int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// RunLog stores job run records.
type RunLog interface {
	// SaveJobRun inserts or updates a run by ID.
	SaveJobRun(ctx context.Context, r JobRun) error

	// ListJobRuns returns runs newest first; an empty job lists all jobs.
	ListJobRuns(ctx context.Context, job string) ([]JobRun, error)

	// IsJobRunComplete reports whether a scheduled run of job completed for runDate.
	IsJobRunComplete(ctx context.Context, job, runDate string) (bool, error)
}

// ScheduleLookup adapts a week snapshot to the recommender's lookup.
func ScheduleLookup(snapshot map[roster.UserID]shift.WeeklySchedule) func(roster.UserID) shift.WeeklySchedule {
	return func(id roster.UserID) shift.WeeklySchedule { return snapshot[id] }
}

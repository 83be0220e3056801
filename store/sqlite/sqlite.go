/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements store.Store (users, day entries, job runs) and notify.Outbox
  using SQLite. The same patterns apply to PostgreSQL with minor SQL dialect
  differences.

INTERFACES IMPLEMENTED:
  store.Directory: User roster
  store.Schedules: Day entries per (user, week, slot)
  store.RunLog:    Notification job run audit
  notify.Outbox:   Queued messages for an external sender

KEY TABLES:
  users:       One row per user; authorized departments as a JSON array
  day_entries: Raw entry JSON per (user_id, week, slot)
  job_runs:    One row per job attempt, scheduled or manual
  outbox:      Messages waiting for delivery

RAW ENTRIES:
  day_entries stores shift.RawEntry JSON, including the legacy bare-string
  shape. Rows are normalized on read, so older rows keep loading as the
  entry shape grows.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block and there is a single writer at a time.

USAGE:
  st, err := sqlite.New("./data/shifts.db", logger)
  if err != nil {
      return err
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - store/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
  - shift/entry.go: Normalize, applied to every row read
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/shift-engine/notify"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store"
	"go.uber.org/zap"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	st := &Store{db: db, logger: logger.Named("sqlite")}
	if err := st.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	st.logger.Debug("database ready", zap.String("path", dbPath))

	return st, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		contract TEXT NOT NULL DEFAULT '',
		authorized_json TEXT NOT NULL DEFAULT '[]',
		role TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_department ON users(department);

	-- One entry per user, ISO week and day slot (1 = Monday)
	CREATE TABLE IF NOT EXISTS day_entries (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		week TEXT NOT NULL,
		slot INTEGER NOT NULL CHECK (slot BETWEEN 1 AND 7),
		entry_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, week, slot)
	);

	CREATE INDEX IF NOT EXISTS idx_day_entries_week ON day_entries(week);

	CREATE TABLE IF NOT EXISTS job_runs (
		id TEXT PRIMARY KEY,
		job TEXT NOT NULL,
		run_trigger TEXT NOT NULL,
		run_date TEXT NOT NULL,
		week TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		messages INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_job_runs_job_date ON job_runs(job, run_date);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		job TEXT NOT NULL,
		recipients_json TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS
// =============================================================================

const userColumns = `id, first_name, last_name, email, department, contract, authorized_json, role`

// ListUsers returns users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []roster.User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser returns store.ErrUserNotFound for unknown IDs.
func (s *Store) GetUser(ctx context.Context, id roster.UserID) (roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, string(id))
	u, err := s.scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.User{}, store.ErrUserNotFound
	}
	return u, err
}

// SaveUser creates or replaces a user. The contract is stored as given.
func (s *Store) SaveUser(ctx context.Context, u roster.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	authorized := u.AuthorizedDepartments
	if authorized == nil {
		authorized = []string{}
	}
	authJSON, err := json.Marshal(authorized)
	if err != nil {
		return err
	}
	now := time.Now().Format(time.RFC3339)

	query := `
		INSERT INTO users (id, first_name, last_name, email, department, contract,
			authorized_json, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			department = excluded.department,
			contract = excluded.contract,
			authorized_json = excluded.authorized_json,
			role = excluded.role,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		string(u.ID), u.FirstName, u.LastName, u.Email, u.Department,
		string(u.Contract), string(authJSON), string(u.Role), now, now,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanUser reads a user row. Unknown contract values fall back to the
// default contract with a warning; an empty contract falls back silently.
func (s *Store) scanUser(row scanner) (roster.User, error) {
	var u roster.User
	var id, contract, authJSON, role string
	if err := row.Scan(&id, &u.FirstName, &u.LastName, &u.Email, &u.Department, &contract, &authJSON, &role); err != nil {
		return roster.User{}, err
	}
	u.ID = roster.UserID(id)
	u.Role = roster.Role(role)

	c, ok := roster.ParseContract(contract)
	if !ok && contract != "" {
		s.logger.Warn("unknown contract, using default",
			zap.String("user", id),
			zap.String("contract", contract),
			zap.String("default", string(c)),
		)
	}
	u.Contract = c

	if err := json.Unmarshal([]byte(authJSON), &u.AuthorizedDepartments); err != nil {
		return roster.User{}, fmt.Errorf("user %s: authorized departments: %w", id, err)
	}
	if len(u.AuthorizedDepartments) == 0 {
		u.AuthorizedDepartments = nil
	}
	return u, nil
}

// =============================================================================
// SCHEDULES
// =============================================================================

// GetWeek returns one user's entries for week.
func (s *Store) GetWeek(ctx context.Context, id roster.UserID, week shift.WeekID) (shift.WeeklySchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, slot, entry_json FROM day_entries WHERE user_id = ? AND week = ?`,
		string(id), week.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := shift.WeeklySchedule{}
	err = s.scanEntries(rows, week, func(_ roster.UserID, slot shift.DaySlot, e shift.DayEntry) {
		out[slot] = e
	})
	return out, err
}

// WeekSnapshot returns every user's entries for week.
func (s *Store) WeekSnapshot(ctx context.Context, week shift.WeekID) (map[roster.UserID]shift.WeeklySchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, slot, entry_json FROM day_entries WHERE week = ?`,
		week.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[roster.UserID]shift.WeeklySchedule)
	err = s.scanEntries(rows, week, func(id roster.UserID, slot shift.DaySlot, e shift.DayEntry) {
		if out[id] == nil {
			out[id] = shift.WeeklySchedule{}
		}
		out[id][slot] = e
	})
	return out, err
}

// scanEntries normalizes each row and passes it to add. Rows that no longer
// normalize (hand-edited or corrupt) are logged and skipped rather than
// failing the whole week.
func (s *Store) scanEntries(rows *sql.Rows, week shift.WeekID, add func(roster.UserID, shift.DaySlot, shift.DayEntry)) error {
	for rows.Next() {
		var id, raw string
		var slot int
		if err := rows.Scan(&id, &slot, &raw); err != nil {
			return err
		}

		var re shift.RawEntry
		if err := json.Unmarshal([]byte(raw), &re); err != nil {
			s.logger.Warn("skipping unreadable day entry",
				zap.String("user", id), zap.String("week", week.String()), zap.Int("slot", slot), zap.Error(err))
			continue
		}
		e, err := shift.Normalize(re)
		if err != nil {
			s.logger.Warn("skipping invalid day entry",
				zap.String("user", id), zap.String("week", week.String()), zap.Int("slot", slot), zap.Error(err))
			continue
		}
		add(roster.UserID(id), shift.DaySlot(slot), e)
	}
	return rows.Err()
}

// PutDay creates or overwrites one day entry. The user must exist.
func (s *Store) PutDay(ctx context.Context, id roster.UserID, week shift.WeekID, slot shift.DaySlot, entry shift.DayEntry) error {
	if !slot.Valid() {
		return shift.ErrInvalidSlot
	}
	raw, err := json.Marshal(entry.Raw())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, string(id)).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return store.ErrUserNotFound
	}

	query := `
		INSERT INTO day_entries (user_id, week, slot, entry_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, week, slot) DO UPDATE SET
			entry_json = excluded.entry_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		string(id), week.String(), int(slot), string(raw), time.Now().Format(time.RFC3339),
	)
	return err
}

// DeleteDay removes one day entry. Missing entries are not an error.
func (s *Store) DeleteDay(ctx context.Context, id roster.UserID, week shift.WeekID, slot shift.DaySlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM day_entries WHERE user_id = ? AND week = ? AND slot = ?`,
		string(id), week.String(), int(slot),
	)
	return err
}

// Reset clears users, day entries and job runs. The outbox is kept so sent
// mail stays auditable.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"day_entries", "job_runs", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// JOB RUNS
// =============================================================================

// SaveJobRun inserts or updates a run by ID.
func (s *Store) SaveJobRun(ctx context.Context, r store.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO job_runs (id, job, run_trigger, run_date, week, status, messages, error,
			started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			week = excluded.week,
			status = excluded.status,
			messages = excluded.messages,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Job, string(r.Trigger), r.RunDate, r.Week, string(r.Status), r.Messages, r.Error,
		formatTimePtr(r.StartedAt), formatTimePtr(r.CompletedAt), formatTime(r.CreatedAt),
	)
	return err
}

// ListJobRuns returns runs newest first. An empty job lists every job.
func (s *Store) ListJobRuns(ctx context.Context, job string) ([]store.JobRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, job, run_trigger, run_date, week, status, messages, error,
			started_at, completed_at, created_at
		FROM job_runs
	`
	var args []any
	if job != "" {
		query += ` WHERE job = ?`
		args = append(args, job)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.JobRun
	for rows.Next() {
		var r store.JobRun
		var trigger, status, createdAt string
		var startedAt, completedAt sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Job, &trigger, &r.RunDate, &r.Week, &status, &r.Messages, &r.Error,
			&startedAt, &completedAt, &createdAt,
		); err != nil {
			return nil, err
		}
		r.Trigger = store.Trigger(trigger)
		r.Status = store.RunStatus(status)
		r.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
		r.StartedAt = parseTimePtr(startedAt)
		r.CompletedAt = parseTimePtr(completedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// IsJobRunComplete checks whether a scheduled run of job already completed
// for runDate.
func (s *Store) IsJobRunComplete(ctx context.Context, job, runDate string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM job_runs
		WHERE job = ? AND run_date = ? AND run_trigger = ? AND status = ?
	`
	var count int
	err := s.db.QueryRowContext(ctx, query,
		job, runDate, string(store.TriggerSchedule), string(store.RunCompleted),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// OUTBOX
// =============================================================================

// Enqueue stores messages for delivery in one transaction.
func (s *Store) Enqueue(ctx context.Context, msgs []notify.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outbox (id, job, recipients_json, subject, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range msgs {
		to := m.To
		if to == nil {
			to = []string{}
		}
		toJSON, err := json.Marshal(to)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.Job, string(toJSON), m.Subject, m.Body, formatTime(m.CreatedAt),
		); err != nil {
			return fmt.Errorf("enqueue %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// ListOutbox returns up to limit queued messages, newest first. A limit of
// zero or less returns all of them.
func (s *Store) ListOutbox(ctx context.Context, limit int) ([]notify.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, job, recipients_json, subject, body, created_at
		FROM outbox ORDER BY rowid DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []notify.Message{}
	for rows.Next() {
		var m notify.Message
		var toJSON, createdAt string
		if err := rows.Scan(&m.ID, &m.Job, &toJSON, &m.Subject, &m.Body, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(toJSON), &m.To); err != nil {
			return nil, fmt.Errorf("message %s: recipients: %w", m.ID, err)
		}
		m.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// timestampLayout is fixed-width UTC so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(timestampLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// Compile-time interface checks.
var (
	_ store.Store   = (*Store)(nil)
	_ notify.Outbox = (*Store)(nil)
)

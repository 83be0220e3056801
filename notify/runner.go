package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/shift-engine/metrics"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
	"go.uber.org/zap"
)

// Source is the read side a job needs.
type Source interface {
	ListUsers(ctx context.Context) ([]roster.User, error)
	WeekSnapshot(ctx context.Context, week shift.WeekID) (map[roster.UserID]shift.WeeklySchedule, error)
}

// Outcome summarizes one job run.
type Outcome struct {
	Week     shift.WeekID
	Messages int
}

// Runner loads a snapshot, builds a job's messages, and hands them to the mailer.
type Runner struct {
	source Source
	mailer Mailer
	logger *zap.Logger
}

func NewRunner(source Source, mailer Mailer, logger *zap.Logger) *Runner {
	return &Runner{source: source, mailer: mailer, logger: logger}
}

// Run executes job as of now. The snapshot is read once; the job never
// writes schedules.
func (r *Runner) Run(ctx context.Context, job Job, now time.Time) (Outcome, error) {
	week := job.Week(now)
	out := Outcome{Week: week}

	users, err := r.source.ListUsers(ctx)
	if err != nil {
		return out, fmt.Errorf("list users: %w", err)
	}
	schedules, err := r.source.WeekSnapshot(ctx, week)
	if err != nil {
		return out, fmt.Errorf("load week %s: %w", week, err)
	}

	msgs := job.Build(Snapshot{Users: users, Week: week, Schedules: schedules}, now)
	for _, m := range msgs {
		for _, v := range m.Violations {
			metrics.ObserveViolation(string(v.Kind), job.Name)
		}
	}

	if err := r.mailer.Send(ctx, msgs); err != nil {
		return out, fmt.Errorf("send %s messages: %w", job.Name, err)
	}
	out.Messages = len(msgs)
	metrics.AddMessages(job.Name, len(msgs))

	r.logger.Info("job built messages",
		zap.String("job", job.Name),
		zap.String("week", week.String()),
		zap.Int("users", len(users)),
		zap.Int("messages", len(msgs)),
	)
	return out, nil
}

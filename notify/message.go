/*
Package notify builds the scheduled notification messages.

PURPOSE:
  Four batch jobs read the roster and one week of schedules, run them through
  the compliance engine, and produce message payloads. Delivery is somebody
  else's problem: messages go to a Mailer, and the default Mailer only queues
  them in an outbox.

JOBS:
  daily-digest:      Who is teleworking and who is out of office today
  vacation-notice:   Per-department heads-up for tomorrow's vacations
  weekly-summary:    Next week's Monday..Friday schedule, by department
  weekly-compliance: Next week's violations, one message per affected user

SEE ALSO:
  - compliance/checker.go: Issues, used by weekly-compliance
  - api/scheduler.go: JobScheduler, which decides when each job runs
*/
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/shift-engine/compliance"
	"go.uber.org/zap"
)

// Message is one notification payload.
type Message struct {
	ID        string    `json:"id"`
	Job       string    `json:"job"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`

	// Violations behind a compliance message. Not persisted.
	Violations []compliance.Violation `json:"-"`
}

func newMessage(job string, to []string, subject, body string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Job:       job,
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: now,
	}
}

// Mailer accepts messages for delivery.
type Mailer interface {
	Send(ctx context.Context, msgs []Message) error
}

// Outbox queues messages for an external sender.
type Outbox interface {
	Enqueue(ctx context.Context, msgs []Message) error
}

// OutboxMailer is the default Mailer: it queues messages and logs them.
type OutboxMailer struct {
	outbox Outbox
	logger *zap.Logger
}

func NewOutboxMailer(outbox Outbox, logger *zap.Logger) *OutboxMailer {
	return &OutboxMailer{outbox: outbox, logger: logger}
}

func (m *OutboxMailer) Send(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := m.outbox.Enqueue(ctx, msgs); err != nil {
		return fmt.Errorf("enqueue %d messages: %w", len(msgs), err)
	}
	for _, msg := range msgs {
		m.logger.Info("message queued",
			zap.String("id", msg.ID),
			zap.String("job", msg.Job),
			zap.Int("recipients", len(msg.To)),
			zap.String("subject", msg.Subject),
		)
	}
	return nil
}

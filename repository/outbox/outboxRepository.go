package outboxrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type Repo interface {
	// Enqueue runs in the business transaction so "state changed" and
	// "delivery scheduled" commit atomically. EventID is the dedup key.
	Enqueue(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error

	// ClaimBatch locks due rows, skipping rows held by concurrent workers.
	ClaimBatch(ctx context.Context, tx *sql.Tx, limit int, now time.Time) ([]model.OutboxEvent, error)

	MarkSent(ctx context.Context, tx *sql.Tx, eventID string) error
	Reschedule(ctx context.Context, tx *sql.Tx, eventID string, attempts int, next time.Time, lastErr string) error
	MarkTerminallyFailed(ctx context.Context, tx *sql.Tx, eventID string, attempts int, lastErr string) error

	InsertAttempt(ctx context.Context, tx *sql.Tx, a *model.OutboxDeliveryAttempt) error

	CountBacklog(ctx context.Context) (model.OutboxBacklog, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Enqueue(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error {
	const q = `
INSERT INTO outbox_events (event_id, topic, payload, status, next_attempt_at)
VALUES ($1,$2,$3,'pending',NOW())
ON CONFLICT (event_id) DO NOTHING`
	_, err := tx.ExecContext(ctx, q, ev.EventID, ev.Topic, ev.Payload)
	return err
}

func (r *repo) ClaimBatch(ctx context.Context, tx *sql.Tx, limit int, now time.Time) ([]model.OutboxEvent, error) {
	const q = `
SELECT event_id, topic, payload, status, attempt_count, next_attempt_at, last_error, created_at, sent_at
FROM outbox_events
WHERE status IN ('pending','failed')
  AND next_attempt_at IS NOT NULL
  AND next_attempt_at <= $2
ORDER BY next_attempt_at
FOR UPDATE SKIP LOCKED
LIMIT $1`
	rows, err := tx.QueryContext(ctx, q, limit, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OutboxEvent
	for rows.Next() {
		var ev model.OutboxEvent
		if err := rows.Scan(&ev.EventID, &ev.Topic, &ev.Payload, &ev.Status, &ev.AttemptCount,
			&ev.NextAttemptAt, &ev.LastError, &ev.CreatedAt, &ev.SentAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *repo) MarkSent(ctx context.Context, tx *sql.Tx, eventID string) error {
	const q = `
UPDATE outbox_events
SET status='sent', sent_at=NOW(), next_attempt_at=NULL, last_error=NULL
WHERE event_id=$1`
	_, err := tx.ExecContext(ctx, q, eventID)
	return err
}

func (r *repo) Reschedule(ctx context.Context, tx *sql.Tx, eventID string, attempts int, next time.Time, lastErr string) error {
	const q = `
UPDATE outbox_events
SET status='failed', attempt_count=$2, next_attempt_at=$3, last_error=$4
WHERE event_id=$1`
	_, err := tx.ExecContext(ctx, q, eventID, attempts, next, lastErr)
	return err
}

func (r *repo) MarkTerminallyFailed(ctx context.Context, tx *sql.Tx, eventID string, attempts int, lastErr string) error {
	// next_attempt_at NULL takes the event out of every future poll.
	const q = `
UPDATE outbox_events
SET status='failed', attempt_count=$2, next_attempt_at=NULL, last_error=$3
WHERE event_id=$1`
	_, err := tx.ExecContext(ctx, q, eventID, attempts, lastErr)
	return err
}

func (r *repo) InsertAttempt(ctx context.Context, tx *sql.Tx, a *model.OutboxDeliveryAttempt) error {
	const q = `
INSERT INTO outbox_delivery_attempts (event_id, attempt_no, transport, outcome, http_status, error)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (event_id, attempt_no) DO NOTHING`
	_, err := tx.ExecContext(ctx, q, a.EventID, a.AttemptNo, a.Transport, a.Outcome, a.HTTPStatus, a.Error)
	return err
}

func (r *repo) CountBacklog(ctx context.Context) (model.OutboxBacklog, error) {
	const q = `
SELECT
	COUNT(*) FILTER (WHERE status='pending')                                   AS pending,
	COUNT(*) FILTER (WHERE status='failed' AND next_attempt_at IS NOT NULL)    AS retryable,
	COUNT(*) FILTER (WHERE status='failed' AND next_attempt_at IS NULL)        AS terminal,
	COUNT(*) FILTER (WHERE status='sent')                                      AS sent
FROM outbox_events`
	var b model.OutboxBacklog
	err := r.db.QueryRowContext(ctx, q).Scan(&b.Pending, &b.Retryable, &b.TerminalFailed, &b.Sent)
	return b, err
}

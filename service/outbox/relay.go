package outboxsvc

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type Repo interface {
	ClaimBatch(ctx context.Context, tx *sql.Tx, limit int, now time.Time) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, tx *sql.Tx, eventID string) error
	Reschedule(ctx context.Context, tx *sql.Tx, eventID string, attempts int, next time.Time, lastErr string) error
	MarkTerminallyFailed(ctx context.Context, tx *sql.Tx, eventID string, attempts int, lastErr string) error
	InsertAttempt(ctx context.Context, tx *sql.Tx, a *model.OutboxDeliveryAttempt) error
}

type Config struct {
	PollInterval  time.Duration
	BatchSize     int
	MaxAttempts   int
	BackoffCapSec int
}

// Relay is the delivery worker. Multiple instances are safe: the claim query
// skips rows locked by another worker, and attempt rows are unique per
// (event, attempt number) so a crash-resume cannot double-audit.
type Relay struct {
	db   *sql.DB
	r    Repo
	sink Sink
	cfg  Config
	log  *slog.Logger
}

func NewRelay(db *sql.DB, r Repo, sink Sink, cfg Config, log *slog.Logger) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BackoffCapSec <= 0 {
		cfg.BackoffCapSec = 300
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Relay{db: db, r: r, sink: sink, cfg: cfg, log: log}
}

// Run polls until ctx is canceled.
func (rl *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.cfg.PollInterval)
	defer ticker.Stop()

	rl.log.Info("outbox relay started", "interval", rl.cfg.PollInterval, "batch", rl.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			rl.log.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if n, err := rl.RunOnce(ctx); err != nil {
				rl.log.Error("outbox poll failed", "err", err)
			} else if n > 0 {
				rl.log.Info("outbox batch processed", "events", n)
			}
		}
	}
}

// RunOnce claims and processes one batch. Claimed rows stay locked until the
// batch commits, which is what keeps each row single-writer.
func (rl *Relay) RunOnce(ctx context.Context) (processed int, err error) {
	tx, err := rl.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	events, err := rl.r.ClaimBatch(ctx, tx, rl.cfg.BatchSize, now)
	if err != nil {
		return 0, err
	}

	for _, ev := range events {
		if err = rl.deliverOne(ctx, tx, ev, now); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return len(events), nil
}

func (rl *Relay) deliverOne(ctx context.Context, tx *sql.Tx, ev model.OutboxEvent, now time.Time) error {
	attemptNo := ev.AttemptCount + 1
	transport, httpStatus, sendErr := rl.sink.Deliver(ctx, ev)

	attempt := &model.OutboxDeliveryAttempt{
		EventID:   ev.EventID,
		AttemptNo: attemptNo,
		Transport: transport,
	}
	if httpStatus != 0 {
		attempt.HTTPStatus = &httpStatus
	}

	if sendErr == nil {
		attempt.Outcome = "success"
		if err := rl.r.InsertAttempt(ctx, tx, attempt); err != nil {
			return err
		}
		return rl.r.MarkSent(ctx, tx, ev.EventID)
	}

	attempt.Outcome = "failure"
	msg := sendErr.Error()
	attempt.Error = &msg
	if err := rl.r.InsertAttempt(ctx, tx, attempt); err != nil {
		return err
	}

	if attemptNo >= rl.cfg.MaxAttempts {
		rl.log.Error("outbox event terminally failed",
			"event_id", ev.EventID, "topic", ev.Topic, "attempts", attemptNo, "err", sendErr)
		return rl.r.MarkTerminallyFailed(ctx, tx, ev.EventID, attemptNo, msg)
	}

	next := now.Add(rl.Backoff(attemptNo))
	rl.log.Warn("outbox delivery failed, rescheduled",
		"event_id", ev.EventID, "attempt", attemptNo, "next_attempt_at", next, "err", sendErr)
	return rl.r.Reschedule(ctx, tx, ev.EventID, attemptNo, next, msg)
}

// Backoff grows as min(2^attempts, cap) seconds.
func (rl *Relay) Backoff(attempts int) time.Duration {
	secs := rl.cfg.BackoffCapSec
	if attempts < 31 {
		if s := 1 << uint(attempts); s < secs {
			secs = s
		}
	}
	return time.Duration(secs) * time.Second
}

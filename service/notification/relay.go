// Package notifsvc drains the notification queue. Notifications are
// best-effort: a send that fails is left unsent and picked up again on the
// next poll, with no attempt counter or backoff.
package notifsvc

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	notifrepo "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/notification"
)

// Sender pushes one notification to its recipient channel (email, push, ...).
type Sender interface {
	Send(ctx context.Context, n model.NotificationEvent) error
}

// LogSender writes notifications to the log. It stands in until a real
// channel integration is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, n model.NotificationEvent) error {
	s.Log.Info("notification sent",
		"id", n.ID, "recipient", n.Recipient, "kind", n.Kind, "support_id", n.SupportID)
	return nil
}

type Relay struct {
	db       *sql.DB
	r        notifrepo.Repo
	sender   Sender
	interval time.Duration
	batch    int
	log      *slog.Logger
}

func NewRelay(db *sql.DB, r notifrepo.Repo, sender Sender, interval time.Duration, log *slog.Logger) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Relay{db: db, r: r, sender: sender, interval: interval, batch: 50, log: log}
}

func (rl *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	rl.log.Info("notification relay started", "interval", rl.interval)
	for {
		select {
		case <-ctx.Done():
			rl.log.Info("notification relay stopped")
			return
		case <-ticker.C:
			if n, err := rl.RunOnce(ctx); err != nil {
				rl.log.Error("notification poll failed", "err", err)
			} else if n > 0 {
				rl.log.Info("notifications sent", "count", n)
			}
		}
	}
}

// RunOnce sends one batch. Only rows whose send succeeded are marked sent;
// failures stay queued for the next cycle.
func (rl *Relay) RunOnce(ctx context.Context) (sent int, err error) {
	tx, err := rl.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	events, err := rl.r.ClaimUnsent(ctx, tx, rl.batch)
	if err != nil {
		return 0, err
	}
	for _, ev := range events {
		if sendErr := rl.sender.Send(ctx, ev); sendErr != nil {
			rl.log.Warn("notification send failed, will retry next cycle",
				"id", ev.ID, "recipient", ev.Recipient, "kind", ev.Kind, "err", sendErr)
			continue
		}
		if err = rl.r.MarkSent(ctx, tx, ev.ID); err != nil {
			return 0, err
		}
		sent++
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return sent, nil
}

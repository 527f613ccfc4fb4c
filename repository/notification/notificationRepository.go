package notifrepo

import (
	"context"
	"database/sql"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type Repo interface {
	Enqueue(ctx context.Context, tx *sql.Tx, n *model.NotificationEvent) error
	ClaimUnsent(ctx context.Context, tx *sql.Tx, limit int) ([]model.NotificationEvent, error)
	MarkSent(ctx context.Context, tx *sql.Tx, id int64) error
	CountUnsent(ctx context.Context) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Enqueue(ctx context.Context, tx *sql.Tx, n *model.NotificationEvent) error {
	const q = `
INSERT INTO notification_events (recipient, support_id, kind, payload)
VALUES ($1,$2,$3,$4)`
	_, err := tx.ExecContext(ctx, q, n.Recipient, n.SupportID, n.Kind, n.Payload)
	return err
}

func (r *repo) ClaimUnsent(ctx context.Context, tx *sql.Tx, limit int) ([]model.NotificationEvent, error) {
	const q = `
SELECT id, recipient, support_id, kind, payload, created_at, sent_at
FROM notification_events
WHERE sent_at IS NULL
ORDER BY id
FOR UPDATE SKIP LOCKED
LIMIT $1`
	rows, err := tx.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.NotificationEvent
	for rows.Next() {
		var n model.NotificationEvent
		if err := rows.Scan(&n.ID, &n.Recipient, &n.SupportID, &n.Kind, &n.Payload, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *repo) MarkSent(ctx context.Context, tx *sql.Tx, id int64) error {
	const q = `UPDATE notification_events SET sent_at=NOW() WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

func (r *repo) CountUnsent(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_events WHERE sent_at IS NULL`).Scan(&n)
	return n, err
}

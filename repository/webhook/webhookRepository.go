package webhookrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repo tracks processed provider event ids, the webhook dedup key. A seen id
// means the event was fully handled once already.
type Repo interface {
	Seen(ctx context.Context, providerEventID string) (bool, error)
	MarkProcessed(ctx context.Context, providerEventID, eventType string) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Seen(ctx context.Context, providerEventID string) (bool, error) {
	const q = `SELECT 1 FROM processed_webhook_events WHERE provider_event_id=$1`
	var one int
	err := r.db.QueryRowContext(ctx, q, providerEventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repo) MarkProcessed(ctx context.Context, providerEventID, eventType string) error {
	const q = `
INSERT INTO processed_webhook_events (provider_event_id, event_type)
VALUES ($1,$2)
ON CONFLICT (provider_event_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, providerEventID, eventType)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil
		}
	}
	return err
}

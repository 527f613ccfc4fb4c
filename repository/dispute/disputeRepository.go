package disputerepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type Repo interface {
	// InsertIfAbsent inserts keyed by provider dispute id. created=false means
	// the dispute already existed; d is left untouched in that case.
	InsertIfAbsent(ctx context.Context, tx *sql.Tx, d *model.Dispute) (created bool, err error)

	GetByProviderID(ctx context.Context, providerDisputeID string) (*model.Dispute, error)
	GetByProviderIDForUpdate(ctx context.Context, tx *sql.Tx, providerDisputeID string) (*model.Dispute, error)
	GetByID(ctx context.Context, id int64) (*model.Dispute, error)

	Close(ctx context.Context, tx *sql.Tx, id int64, status model.DisputeStatus, finalLiability string) error

	InsertEvent(ctx context.Context, tx *sql.Tx, ev *model.DisputeEvent) error

	UpsertRefund(ctx context.Context, tx *sql.Tx, r *model.RefundRecord) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const disputeCols = `id, support_id, project_id, provider_dispute_id, status,
	amount_minor, currency, reason, final_liability, opened_at, resolved_at`

func scanDispute(row *sql.Row) (*model.Dispute, error) {
	d := &model.Dispute{}
	err := row.Scan(
		&d.ID, &d.SupportID, &d.ProjectID, &d.ProviderDisputeID, &d.Status,
		&d.AmountMinor, &d.Currency, &d.Reason, &d.FinalLiability, &d.OpenedAt, &d.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *repo) InsertIfAbsent(ctx context.Context, tx *sql.Tx, d *model.Dispute) (bool, error) {
	const q = `
INSERT INTO disputes (support_id, project_id, provider_dispute_id, status, amount_minor, currency, reason)
VALUES ($1,$2,$3,'open',$4,$5,$6)
ON CONFLICT (provider_dispute_id) DO NOTHING
RETURNING id, opened_at`
	err := tx.QueryRowContext(ctx, q,
		d.SupportID, d.ProjectID, d.ProviderDisputeID, d.AmountMinor, d.Currency, d.Reason,
	).Scan(&d.ID, &d.OpenedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return false, nil
		}
		return false, err
	}
	d.Status = model.DisputeOpen
	return true, nil
}

func (r *repo) GetByProviderID(ctx context.Context, providerDisputeID string) (*model.Dispute, error) {
	const q = `SELECT ` + disputeCols + ` FROM disputes WHERE provider_dispute_id=$1`
	return scanDispute(r.db.QueryRowContext(ctx, q, providerDisputeID))
}

func (r *repo) GetByProviderIDForUpdate(ctx context.Context, tx *sql.Tx, providerDisputeID string) (*model.Dispute, error) {
	const q = `SELECT ` + disputeCols + ` FROM disputes WHERE provider_dispute_id=$1 FOR UPDATE`
	return scanDispute(tx.QueryRowContext(ctx, q, providerDisputeID))
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.Dispute, error) {
	const q = `SELECT ` + disputeCols + ` FROM disputes WHERE id=$1`
	return scanDispute(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) Close(ctx context.Context, tx *sql.Tx, id int64, status model.DisputeStatus, finalLiability string) error {
	const q = `
UPDATE disputes
SET status=$2, final_liability=$3, resolved_at=NOW()
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id, status, finalLiability)
	return err
}

func (r *repo) InsertEvent(ctx context.Context, tx *sql.Tx, ev *model.DisputeEvent) error {
	// amount_minor is NOT NULL; lifecycle events carry no amount, so a nil
	// pointer must bind 0, never SQL NULL.
	var amount int64
	if ev.AmountMinor != nil {
		amount = *ev.AmountMinor
	}
	const q = `
INSERT INTO dispute_events (dispute_id, kind, action, amount_minor, currency, note)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := tx.ExecContext(ctx, q, ev.DisputeID, ev.Kind, ev.Action, amount, ev.Currency, ev.Note)
	return err
}

func (r *repo) UpsertRefund(ctx context.Context, tx *sql.Tx, rec *model.RefundRecord) error {
	// One refund outcome per support; redelivered webhooks converge on it
	// and the original requested_at survives.
	const q = `
INSERT INTO refund_records (support_id, provider_refund_id, reason, amount_minor, currency, status, requested_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
ON CONFLICT (support_id) DO UPDATE
SET provider_refund_id = EXCLUDED.provider_refund_id,
    status             = EXCLUDED.status,
    completed_at       = COALESCE(refund_records.completed_at, EXCLUDED.completed_at)
RETURNING id, requested_at, completed_at`
	return tx.QueryRowContext(ctx, q,
		rec.SupportID, rec.ProviderRefundID, rec.Reason, rec.AmountMinor, rec.Currency, rec.Status,
	).Scan(&rec.ID, &rec.RequestedAt, &rec.CompletedAt)
}

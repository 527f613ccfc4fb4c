package supportrepo

import (
	"context"
	"database/sql"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, s *model.SupportTransaction) error
	GetByID(ctx context.Context, id int64) (*model.SupportTransaction, error)

	// GetForUpdate takes the row lock every state transition serializes on.
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.SupportTransaction, error)

	MarkPendingConfirmation(ctx context.Context, tx *sql.Tx, id int64) error
	MarkSucceeded(ctx context.Context, tx *sql.Tx, id int64) error
	MarkRefunded(ctx context.Context, tx *sql.Tx, id int64) error
	MarkFailed(ctx context.Context, tx *sql.Tx, id int64) error
	MarkCanceled(ctx context.Context, tx *sql.Tx, id int64) error

	InsertStatusHistory(ctx context.Context, tx *sql.Tx, h *model.SupportStatusHistory) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const supportCols = `id, project_id, plan_id, supporter_id, amount_minor, currency,
	status, checkout_session_ref, created_at, confirmed_at, succeeded_at, refunded_at, updated_at`

func scanSupport(row *sql.Row) (*model.SupportTransaction, error) {
	s := &model.SupportTransaction{}
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.PlanID, &s.SupporterID, &s.AmountMinor, &s.Currency,
		&s.Status, &s.CheckoutSessionRef, &s.CreatedAt, &s.ConfirmedAt, &s.SucceededAt,
		&s.RefundedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, s *model.SupportTransaction) error {
	const q = `
INSERT INTO support_transactions
	(project_id, plan_id, supporter_id, amount_minor, currency, status, checkout_session_ref)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, created_at, updated_at`
	return tx.QueryRowContext(ctx, q,
		s.ProjectID, s.PlanID, s.SupporterID, s.AmountMinor, s.Currency, s.Status, s.CheckoutSessionRef,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.SupportTransaction, error) {
	const q = `SELECT ` + supportCols + ` FROM support_transactions WHERE id=$1`
	return scanSupport(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.SupportTransaction, error) {
	const q = `SELECT ` + supportCols + ` FROM support_transactions WHERE id=$1 FOR UPDATE`
	return scanSupport(tx.QueryRowContext(ctx, q, id))
}

func (r *repo) MarkPendingConfirmation(ctx context.Context, tx *sql.Tx, id int64) error {
	const q = `
UPDATE support_transactions
SET status='pending_confirmation', confirmed_at=NOW(), updated_at=NOW()
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

func (r *repo) MarkSucceeded(ctx context.Context, tx *sql.Tx, id int64) error {
	const q = `
UPDATE support_transactions
SET status='succeeded', succeeded_at=NOW(), updated_at=NOW()
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

func (r *repo) MarkRefunded(ctx context.Context, tx *sql.Tx, id int64) error {
	const q = `
UPDATE support_transactions
SET status='refunded', refunded_at=NOW(), updated_at=NOW()
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

func (r *repo) MarkFailed(ctx context.Context, tx *sql.Tx, id int64) error {
	const q = `UPDATE support_transactions SET status='failed', updated_at=NOW() WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

func (r *repo) MarkCanceled(ctx context.Context, tx *sql.Tx, id int64) error {
	const q = `UPDATE support_transactions SET status='canceled', updated_at=NOW() WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

func (r *repo) InsertStatusHistory(ctx context.Context, tx *sql.Tx, h *model.SupportStatusHistory) error {
	const q = `
INSERT INTO support_status_history (support_id, from_status, to_status, reason, actor)
VALUES ($1,$2,$3,$4,$5)`
	_, err := tx.ExecContext(ctx, q, h.SupportID, h.FromStatus, h.ToStatus, h.Reason, h.Actor)
	return err
}

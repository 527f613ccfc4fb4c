package supportsvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, s *model.SupportTransaction) error
	GetByID(ctx context.Context, id int64) (*model.SupportTransaction, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.SupportTransaction, error)

	MarkPendingConfirmation(ctx context.Context, tx *sql.Tx, id int64) error
	MarkSucceeded(ctx context.Context, tx *sql.Tx, id int64) error
	MarkRefunded(ctx context.Context, tx *sql.Tx, id int64) error
	MarkFailed(ctx context.Context, tx *sql.Tx, id int64) error
	MarkCanceled(ctx context.Context, tx *sql.Tx, id int64) error

	InsertStatusHistory(ctx context.Context, tx *sql.Tx, h *model.SupportStatusHistory) error
}

type PlanStore interface {
	GetPlan(ctx context.Context, projectID, planID int64) (*model.Plan, error)
}

type RefundStore interface {
	UpsertRefund(ctx context.Context, tx *sql.Tx, r *model.RefundRecord) error
}

type Journal interface {
	Append(ctx context.Context, tx *sql.Tx, entryType model.EntryType, links model.EntryLinks, description string, lines []model.JournalLine) (*model.JournalEntry, error)
}

type OutboxStore interface {
	Enqueue(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error
}

type NotificationStore interface {
	Enqueue(ctx context.Context, tx *sql.Tx, n *model.NotificationEvent) error
}

type Service interface {
	Prepare(ctx context.Context, projectID, planID, supporterID int64, quantity int) (*model.SupportTransaction, error)
	Confirm(ctx context.Context, supportID int64) (*model.SupportTransaction, error)
	Cancel(ctx context.Context, supportID int64) (*model.SupportTransaction, error)
	Get(ctx context.Context, supportID int64) (*model.SupportTransaction, error)

	// Webhook-driven transitions. Each takes the row lock before branching on
	// current state, so redeliveries serialize and no-op.
	MarkSucceededByWebhook(ctx context.Context, supportID int64) (*model.SupportTransaction, error)
	MarkFailedByWebhook(ctx context.Context, supportID int64) (*model.SupportTransaction, error)
	MarkRefundedByWebhook(ctx context.Context, supportID int64, providerRefundID, reason string) (*model.SupportTransaction, error)
}

type service struct {
	db      *sql.DB
	r       Repo
	plans   PlanStore
	refunds RefundStore
	journal Journal
	outbox  OutboxStore
	notify  NotificationStore
	log     *slog.Logger

	// mem is non-nil only in transient mode, chosen once at startup.
	mem *memStore
}

func New(db *sql.DB, r Repo, plans PlanStore, refunds RefundStore, j Journal, ob OutboxStore, nb NotificationStore, log *slog.Logger) Service {
	return &service{db: db, r: r, plans: plans, refunds: refunds, journal: j, outbox: ob, notify: nb, log: log}
}

// NewTransient builds the degraded in-process service used when no durable
// store is reachable at startup. Prepare/confirm/cancel/get work for a single
// process lifetime; webhook transitions are refused because they would write
// ledger state that cannot be made durable.
func NewTransient(plans PlanStore, log *slog.Logger) Service {
	return &service{plans: plans, log: log, mem: newMemStore()}
}

// withLockedSupport is the single place the lock-then-branch pattern lives:
// every state transition goes through it.
func (s *service) withLockedSupport(ctx context.Context, id int64, fn func(tx *sql.Tx, cur *model.SupportTransaction) error) (out *model.SupportTransaction, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := s.r.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(fmt.Sprintf("support %d not found", id))
		}
		return nil, err
	}
	if err = fn(tx, cur); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return cur, nil
}

func (s *service) Prepare(ctx context.Context, projectID, planID, supporterID int64, quantity int) (*model.SupportTransaction, error) {
	if quantity < 1 {
		return nil, errs.Validation("quantity must be at least 1")
	}

	plan, err := s.plans.GetPlan(ctx, projectID, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(fmt.Sprintf("plan %d not found in project %d", planID, projectID))
		}
		return nil, err
	}

	support := &model.SupportTransaction{
		ProjectID:          projectID,
		PlanID:             planID,
		SupporterID:        supporterID,
		AmountMinor:        plan.UnitPriceMinor * int64(quantity),
		Currency:           plan.Currency,
		Status:             model.SupportPrepared,
		CheckoutSessionRef: uuid.NewString(),
	}

	if s.mem != nil {
		return s.mem.insert(support), nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.r.Insert(ctx, tx, support); err != nil {
		return nil, err
	}
	if err = s.r.InsertStatusHistory(ctx, tx, &model.SupportStatusHistory{
		SupportID: support.ID,
		ToStatus:  model.SupportPrepared,
		Reason:    "prepare",
		Actor:     model.ActorUser,
	}); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return support, nil
}

// Confirm is idempotent by construction: repeated confirms of an already
// pending or succeeded support return current state without error.
func (s *service) Confirm(ctx context.Context, supportID int64) (*model.SupportTransaction, error) {
	if s.mem != nil {
		return s.mem.confirm(supportID)
	}
	return s.withLockedSupport(ctx, supportID, func(tx *sql.Tx, cur *model.SupportTransaction) error {
		switch cur.Status {
		case model.SupportPendingConfirmation, model.SupportSucceeded:
			return nil
		case model.SupportPrepared:
			if err := s.r.MarkPendingConfirmation(ctx, tx, cur.ID); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, tx, cur, model.SupportPendingConfirmation, "confirm", model.ActorUser); err != nil {
				return err
			}
			cur.Status = model.SupportPendingConfirmation
			return nil
		default:
			return errs.StateConflict(fmt.Sprintf("cannot confirm support in status %s", cur.Status))
		}
	})
}

func (s *service) Cancel(ctx context.Context, supportID int64) (*model.SupportTransaction, error) {
	if s.mem != nil {
		return s.mem.cancel(supportID)
	}
	return s.withLockedSupport(ctx, supportID, func(tx *sql.Tx, cur *model.SupportTransaction) error {
		switch cur.Status {
		case model.SupportCanceled:
			return nil
		case model.SupportPrepared, model.SupportPendingConfirmation:
			if err := s.r.MarkCanceled(ctx, tx, cur.ID); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, tx, cur, model.SupportCanceled, "cancel", model.ActorUser); err != nil {
				return err
			}
			cur.Status = model.SupportCanceled
			return nil
		default:
			return errs.StateConflict(fmt.Sprintf("cannot cancel support in status %s", cur.Status))
		}
	})
}

func (s *service) Get(ctx context.Context, supportID int64) (*model.SupportTransaction, error) {
	if s.mem != nil {
		return s.mem.get(supportID)
	}
	support, err := s.r.GetByID(ctx, supportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(fmt.Sprintf("support %d not found", supportID))
		}
		return nil, err
	}
	return support, nil
}

// MarkSucceededByWebhook settles the pledge: status, hold entry, outbox event
// and notifications commit in one transaction. A redelivered webhook finds
// status succeeded under the lock and returns unchanged state.
func (s *service) MarkSucceededByWebhook(ctx context.Context, supportID int64) (*model.SupportTransaction, error) {
	if s.mem != nil {
		return nil, errs.New(errs.CodeTransientStore, "webhook transitions need a durable store")
	}
	return s.withLockedSupport(ctx, supportID, func(tx *sql.Tx, cur *model.SupportTransaction) error {
		switch cur.Status {
		case model.SupportSucceeded:
			return nil
		case model.SupportPrepared, model.SupportPendingConfirmation:
		default:
			return errs.StateConflict(fmt.Sprintf("cannot settle support in status %s", cur.Status))
		}

		if err := s.r.MarkSucceeded(ctx, tx, cur.ID); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, cur, model.SupportSucceeded, "checkout_completed", model.ActorWebhook); err != nil {
			return err
		}
		if _, err := s.journal.Append(ctx, tx, model.EntrySupportHeld,
			model.EntryLinks{ProjectID: &cur.ProjectID, SupportID: &cur.ID},
			fmt.Sprintf("support %d held", cur.ID),
			[]model.JournalLine{
				model.Debit(model.AccountCashClearing, cur.Currency, cur.AmountMinor),
				model.Credit(model.AccountSupportLiability, cur.Currency, cur.AmountMinor),
			}); err != nil {
			return err
		}
		if err := s.enqueueOutbox(ctx, tx, "support.succeeded", cur); err != nil {
			return err
		}
		if err := s.enqueueNotifications(ctx, tx, cur, "support_succeeded"); err != nil {
			return err
		}
		cur.Status = model.SupportSucceeded
		now := time.Now().UTC()
		cur.SucceededAt = &now
		return nil
	})
}

func (s *service) MarkFailedByWebhook(ctx context.Context, supportID int64) (*model.SupportTransaction, error) {
	if s.mem != nil {
		return nil, errs.New(errs.CodeTransientStore, "webhook transitions need a durable store")
	}
	return s.withLockedSupport(ctx, supportID, func(tx *sql.Tx, cur *model.SupportTransaction) error {
		switch cur.Status {
		case model.SupportPrepared, model.SupportPendingConfirmation:
			if err := s.r.MarkFailed(ctx, tx, cur.ID); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, tx, cur, model.SupportFailed, "checkout_expired", model.ActorWebhook); err != nil {
				return err
			}
			cur.Status = model.SupportFailed
			return nil
		default:
			// settled or already terminal; expiry notices arriving late are noise
			s.log.Info("ignoring checkout expiry", "support_id", cur.ID, "status", cur.Status)
			return nil
		}
	})
}

func (s *service) MarkRefundedByWebhook(ctx context.Context, supportID int64, providerRefundID, reason string) (*model.SupportTransaction, error) {
	if s.mem != nil {
		return nil, errs.New(errs.CodeTransientStore, "webhook transitions need a durable store")
	}
	return s.withLockedSupport(ctx, supportID, func(tx *sql.Tx, cur *model.SupportTransaction) error {
		switch cur.Status {
		case model.SupportRefunded:
			return nil
		case model.SupportSucceeded:
		default:
			return errs.StateConflict(fmt.Sprintf("cannot refund support in status %s", cur.Status))
		}

		if err := s.r.MarkRefunded(ctx, tx, cur.ID); err != nil {
			return err
		}
		if err := s.refunds.UpsertRefund(ctx, tx, &model.RefundRecord{
			SupportID:        cur.ID,
			ProviderRefundID: providerRefundID,
			Reason:           reason,
			AmountMinor:      cur.AmountMinor,
			Currency:         cur.Currency,
			Status:           model.RefundCompleted,
		}); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, cur, model.SupportRefunded, reason, model.ActorWebhook); err != nil {
			return err
		}
		if _, err := s.journal.Append(ctx, tx, model.EntrySupportRefunded,
			model.EntryLinks{ProjectID: &cur.ProjectID, SupportID: &cur.ID},
			fmt.Sprintf("support %d refunded", cur.ID),
			[]model.JournalLine{
				model.Debit(model.AccountSupportLiability, cur.Currency, cur.AmountMinor),
				model.Credit(model.AccountCashClearing, cur.Currency, cur.AmountMinor),
			}); err != nil {
			return err
		}
		if err := s.enqueueOutbox(ctx, tx, "support.refunded", cur); err != nil {
			return err
		}
		cur.Status = model.SupportRefunded
		now := time.Now().UTC()
		cur.RefundedAt = &now
		return nil
	})
}

func (s *service) appendHistory(ctx context.Context, tx *sql.Tx, cur *model.SupportTransaction, to model.SupportStatus, reason string, actor model.StatusActor) error {
	return s.r.InsertStatusHistory(ctx, tx, &model.SupportStatusHistory{
		SupportID:  cur.ID,
		FromStatus: cur.Status,
		ToStatus:   to,
		Reason:     reason,
		Actor:      actor,
	})
}

func (s *service) enqueueOutbox(ctx context.Context, tx *sql.Tx, topic string, cur *model.SupportTransaction) error {
	payload, err := json.Marshal(map[string]any{
		"support_id":   cur.ID,
		"project_id":   cur.ProjectID,
		"supporter_id": cur.SupporterID,
		"amount_minor": cur.AmountMinor,
		"currency":     cur.Currency,
	})
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, tx, &model.OutboxEvent{
		EventID: uuid.NewString(),
		Topic:   topic,
		Payload: payload,
	})
}

func (s *service) enqueueNotifications(ctx context.Context, tx *sql.Tx, cur *model.SupportTransaction, kind string) error {
	payload, err := json.Marshal(map[string]any{
		"support_id":   cur.ID,
		"project_id":   cur.ProjectID,
		"amount_minor": cur.AmountMinor,
		"currency":     cur.Currency,
	})
	if err != nil {
		return err
	}
	for _, rcpt := range []model.NotificationRecipient{model.RecipientCreator, model.RecipientSupporter} {
		if err := s.notify.Enqueue(ctx, tx, &model.NotificationEvent{
			Recipient: rcpt,
			SupportID: &cur.ID,
			Kind:      kind,
			Payload:   payload,
		}); err != nil {
			return err
		}
	}
	return nil
}

package disputesvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

type Repo interface {
	InsertIfAbsent(ctx context.Context, tx *sql.Tx, d *model.Dispute) (created bool, err error)
	GetByProviderID(ctx context.Context, providerDisputeID string) (*model.Dispute, error)
	GetByProviderIDForUpdate(ctx context.Context, tx *sql.Tx, providerDisputeID string) (*model.Dispute, error)
	GetByID(ctx context.Context, id int64) (*model.Dispute, error)
	Close(ctx context.Context, tx *sql.Tx, id int64, status model.DisputeStatus, finalLiability string) error
	InsertEvent(ctx context.Context, tx *sql.Tx, ev *model.DisputeEvent) error
}

type SupportStore interface {
	Get(ctx context.Context, supportID int64) (*model.SupportTransaction, error)
}

type Journal interface {
	Append(ctx context.Context, tx *sql.Tx, entryType model.EntryType, links model.EntryLinks, description string, lines []model.JournalLine) (*model.JournalEntry, error)
}

type OutboxStore interface {
	Enqueue(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error
}

type Service interface {
	// Open is the get-or-create keyed by provider dispute id: the first
	// notice books the reserve entry, every redelivery returns the existing
	// dispute untouched.
	Open(ctx context.Context, providerDisputeID string, supportID, amountMinor int64, currency, reason string) (*model.Dispute, error)

	// Close resolves a dispute exactly once; closing entries are booked with
	// the won/lost transition, there is no separate close event.
	Close(ctx context.Context, providerDisputeID, outcome, reason string) (*model.Dispute, error)

	Get(ctx context.Context, providerDisputeID string) (*model.Dispute, error)

	// RecoveryAttempt records an operator-initiated recovery action. It is
	// audit-only and books no journal lines; reconciliation of recovered
	// funds stays a manual step for now.
	RecoveryAttempt(ctx context.Context, disputeID int64, action string, amountMinor int64, currency, note string) error
}

type service struct {
	db       *sql.DB
	r        Repo
	supports SupportStore
	journal  Journal
	outbox   OutboxStore
	log      *slog.Logger
}

func New(db *sql.DB, r Repo, supports SupportStore, j Journal, ob OutboxStore, log *slog.Logger) Service {
	return &service{db: db, r: r, supports: supports, journal: j, outbox: ob, log: log}
}

func (s *service) Open(ctx context.Context, providerDisputeID string, supportID, amountMinor int64, currency, reason string) (out *model.Dispute, err error) {
	if providerDisputeID == "" {
		return nil, errs.Validation("provider dispute id is required")
	}
	if amountMinor <= 0 {
		return nil, errs.Validation("dispute amount must be positive")
	}

	support, err := s.supports.Get(ctx, supportID)
	if err != nil {
		return nil, err
	}

	d := &model.Dispute{
		SupportID:         supportID,
		ProjectID:         support.ProjectID,
		ProviderDisputeID: providerDisputeID,
		AmountMinor:       amountMinor,
		Currency:          currency,
		Reason:            reason,
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

	created, err := s.r.InsertIfAbsent(ctx, tx, d)
	if err != nil {
		return nil, err
	}
	if !created {
		_ = tx.Rollback()
		existing, err := s.r.GetByProviderID(ctx, providerDisputeID)
		if err != nil {
			return nil, err
		}
		s.log.Info("dispute notice redelivered", "provider_dispute_id", providerDisputeID)
		return existing, nil
	}

	if _, err = s.journal.Append(ctx, tx, model.EntryDisputeOpened,
		model.EntryLinks{ProjectID: &d.ProjectID, SupportID: &d.SupportID, DisputeID: &d.ID},
		fmt.Sprintf("dispute %s opened", providerDisputeID),
		[]model.JournalLine{
			model.Debit(model.AccountSupportLiability, currency, amountMinor),
			model.Credit(model.AccountDisputeReserve, currency, amountMinor),
		}); err != nil {
		return nil, err
	}
	if err = s.r.InsertEvent(ctx, tx, &model.DisputeEvent{
		DisputeID: d.ID,
		Kind:      "opened",
		Note:      reason,
	}); err != nil {
		return nil, err
	}
	if err = s.enqueueOutbox(ctx, tx, "dispute.opened", d); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) Close(ctx context.Context, providerDisputeID, outcome, reason string) (out *model.Dispute, err error) {
	var target model.DisputeStatus
	var liability string
	switch outcome {
	case "won":
		target, liability = model.DisputeWon, model.LiabilityProvider
	case "lost":
		target, liability = model.DisputeLost, model.LiabilityPlatform
	default:
		return nil, errs.Validation(fmt.Sprintf("unknown dispute outcome %q", outcome))
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

	d, err := s.r.GetByProviderIDForUpdate(ctx, tx, providerDisputeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(fmt.Sprintf("dispute %s not found", providerDisputeID))
		}
		return nil, err
	}
	if d.Status != model.DisputeOpen {
		// already resolved; redelivered close notices change nothing
		_ = tx.Rollback()
		s.log.Info("dispute close redelivered", "provider_dispute_id", providerDisputeID, "status", d.Status)
		return d, nil
	}

	if err = s.r.Close(ctx, tx, d.ID, target, liability); err != nil {
		return nil, err
	}

	switch target {
	case model.DisputeWon:
		// reserve flows back into support liability
		if _, err = s.journal.Append(ctx, tx, model.EntryDisputeReserveReleased,
			model.EntryLinks{ProjectID: &d.ProjectID, SupportID: &d.SupportID, DisputeID: &d.ID},
			fmt.Sprintf("dispute %s won, reserve released", providerDisputeID),
			[]model.JournalLine{
				model.Debit(model.AccountDisputeReserve, d.Currency, d.AmountMinor),
				model.Credit(model.AccountSupportLiability, d.Currency, d.AmountMinor),
			}); err != nil {
			return nil, err
		}
	case model.DisputeLost:
		// two entries: the reserve pays out, and the loss is booked as its
		// own economic event against support liability
		if _, err = s.journal.Append(ctx, tx, model.EntryDisputeReservePaidOut,
			model.EntryLinks{ProjectID: &d.ProjectID, SupportID: &d.SupportID, DisputeID: &d.ID},
			fmt.Sprintf("dispute %s lost, reserve paid out", providerDisputeID),
			[]model.JournalLine{
				model.Debit(model.AccountDisputeReserve, d.Currency, d.AmountMinor),
				model.Credit(model.AccountCashClearing, d.Currency, d.AmountMinor),
			}); err != nil {
			return nil, err
		}
		if _, err = s.journal.Append(ctx, tx, model.EntryDisputeLoss,
			model.EntryLinks{ProjectID: &d.ProjectID, SupportID: &d.SupportID, DisputeID: &d.ID},
			fmt.Sprintf("dispute %s loss expense", providerDisputeID),
			[]model.JournalLine{
				model.Debit(model.AccountDisputeLossExpense, d.Currency, d.AmountMinor),
				model.Credit(model.AccountSupportLiability, d.Currency, d.AmountMinor),
			}); err != nil {
			return nil, err
		}
	}

	if err = s.r.InsertEvent(ctx, tx, &model.DisputeEvent{
		DisputeID: d.ID,
		Kind:      "closed_" + outcome,
		Note:      reason,
	}); err != nil {
		return nil, err
	}
	if err = s.enqueueOutbox(ctx, tx, "dispute.closed", d); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	d.Status = target
	d.FinalLiability = &liability
	return d, nil
}

func (s *service) Get(ctx context.Context, providerDisputeID string) (*model.Dispute, error) {
	d, err := s.r.GetByProviderID(ctx, providerDisputeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound(fmt.Sprintf("dispute %s not found", providerDisputeID))
		}
		return nil, err
	}
	return d, nil
}

func (s *service) RecoveryAttempt(ctx context.Context, disputeID int64, action string, amountMinor int64, currency, note string) (err error) {
	if action == "" {
		return errs.Validation("recovery action is required")
	}
	if _, err := s.r.GetByID(ctx, disputeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound(fmt.Sprintf("dispute %d not found", disputeID))
		}
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.r.InsertEvent(ctx, tx, &model.DisputeEvent{
		DisputeID:   disputeID,
		Kind:        "recovery_attempt",
		Action:      action,
		AmountMinor: &amountMinor,
		Currency:    currency,
		Note:        note,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *service) enqueueOutbox(ctx context.Context, tx *sql.Tx, topic string, d *model.Dispute) error {
	payload, err := json.Marshal(map[string]any{
		"dispute_id":          d.ID,
		"provider_dispute_id": d.ProviderDisputeID,
		"support_id":          d.SupportID,
		"amount_minor":        d.AmountMinor,
		"currency":            d.Currency,
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

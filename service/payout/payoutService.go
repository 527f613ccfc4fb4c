package payoutsvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

type Journal interface {
	Append(ctx context.Context, tx *sql.Tx, entryType model.EntryType, links model.EntryLinks, description string, lines []model.JournalLine) (*model.JournalEntry, error)
}

type OutboxStore interface {
	Enqueue(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error
}

// Service moves settled support funds into creator payable. The actual bank
// transfer happens outside this core; the entry records the obligation.
type Service interface {
	Release(ctx context.Context, projectID, amountMinor int64, currency, note string) (*model.JournalEntry, error)
}

type service struct {
	db      *sql.DB
	journal Journal
	outbox  OutboxStore
	log     *slog.Logger
}

func New(db *sql.DB, j Journal, ob OutboxStore, log *slog.Logger) Service {
	return &service{db: db, journal: j, outbox: ob, log: log}
}

func (s *service) Release(ctx context.Context, projectID, amountMinor int64, currency, note string) (entry *model.JournalEntry, err error) {
	if amountMinor <= 0 {
		return nil, errs.Validation("payout amount must be positive")
	}
	if len(currency) != 3 {
		return nil, errs.Validation("currency must be a 3-letter code")
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

	entry, err = s.journal.Append(ctx, tx, model.EntryPayoutReleased,
		model.EntryLinks{ProjectID: &projectID},
		fmt.Sprintf("payout released for project %d: %s", projectID, note),
		[]model.JournalLine{
			model.Debit(model.AccountSupportLiability, currency, amountMinor),
			model.Credit(model.AccountCreatorPayable, currency, amountMinor),
		})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]any{
		"project_id":   projectID,
		"amount_minor": amountMinor,
		"currency":     currency,
	})
	if err != nil {
		return nil, err
	}
	if err = s.outbox.Enqueue(ctx, tx, &model.OutboxEvent{
		EventID: uuid.NewString(),
		Topic:   "payout.released",
		Payload: payload,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	s.log.Info("payout released", "project_id", projectID, "amount_minor", amountMinor, "currency", currency)
	return entry, nil
}

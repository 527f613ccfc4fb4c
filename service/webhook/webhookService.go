package webhooksvc

import (
	"context"
	"log/slog"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

type SupportLedger interface {
	MarkSucceededByWebhook(ctx context.Context, supportID int64) (*model.SupportTransaction, error)
	MarkFailedByWebhook(ctx context.Context, supportID int64) (*model.SupportTransaction, error)
	MarkRefundedByWebhook(ctx context.Context, supportID int64, providerRefundID, reason string) (*model.SupportTransaction, error)
}

type DisputeLedger interface {
	Open(ctx context.Context, providerDisputeID string, supportID, amountMinor int64, currency, reason string) (*model.Dispute, error)
	Close(ctx context.Context, providerDisputeID, outcome, reason string) (*model.Dispute, error)
}

// DedupStore tracks provider event ids already handled once.
type DedupStore interface {
	Seen(ctx context.Context, providerEventID string) (bool, error)
	MarkProcessed(ctx context.Context, providerEventID, eventType string) error
}

type Result struct {
	ProviderEventID string `json:"provider_event_id"`
	Outcome         string `json:"outcome"` // processed | deduplicated | ignored
}

type Service interface {
	// Handle dispatches one signature-verified provider event. Payloads
	// arrive already verified and parsed to bytes by the HTTP adapter; no
	// signature logic lives here.
	Handle(ctx context.Context, raw []byte) (*Result, error)
}

type service struct {
	supports SupportLedger
	disputes DisputeLedger
	dedup    DedupStore
	log      *slog.Logger
}

func New(supports SupportLedger, disputes DisputeLedger, dedup DedupStore, log *slog.Logger) Service {
	return &service{supports: supports, disputes: disputes, dedup: dedup, log: log}
}

func (s *service) Handle(ctx context.Context, raw []byte) (*Result, error) {
	eventID, ev, err := Parse(raw)
	if err != nil {
		return nil, errs.Validation(err.Error())
	}

	seen, err := s.dedup.Seen(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if seen {
		s.log.Info("webhook event deduplicated", "provider_event_id", eventID)
		return &Result{ProviderEventID: eventID, Outcome: "deduplicated"}, nil
	}

	switch e := ev.(type) {
	case CheckoutCompleted:
		_, err = s.supports.MarkSucceededByWebhook(ctx, e.SupportID)
	case CheckoutExpired:
		_, err = s.supports.MarkFailedByWebhook(ctx, e.SupportID)
	case RefundCompleted:
		_, err = s.supports.MarkRefundedByWebhook(ctx, e.SupportID, e.ProviderRefundID, e.Reason)
	case DisputeOpened:
		_, err = s.disputes.Open(ctx, e.ProviderDisputeID, e.SupportID, e.AmountMinor, e.Currency, e.Reason)
	case DisputeClosed:
		_, err = s.disputes.Close(ctx, e.ProviderDisputeID, e.Outcome, e.Reason)
	case Unknown:
		// deliberate ignore: providers add event types we do not consume
		s.log.Info("ignoring webhook event type", "provider_event_id", eventID, "type", e.Type)
		return &Result{ProviderEventID: eventID, Outcome: "ignored"}, nil
	}
	if err != nil {
		return nil, err
	}

	// Marked only after successful handling. A crash in between causes one
	// redelivery, which the row-locked no-op checks absorb.
	if err := s.dedup.MarkProcessed(ctx, eventID, ev.kind()); err != nil {
		return nil, err
	}
	return &Result{ProviderEventID: eventID, Outcome: "processed"}, nil
}

// model/dispute.go
package model

import "time"

type DisputeStatus string

const (
	DisputeOpen DisputeStatus = "open"
	DisputeWon  DisputeStatus = "won"
	DisputeLost DisputeStatus = "lost"
)

// Liability assignment recorded when a dispute resolves.
const (
	LiabilityProvider = "provider"
	LiabilityPlatform = "platform"
)

// Dispute is one payment-provider dispute against a support transaction,
// upserted idempotently on ProviderDisputeID.
type Dispute struct {
	ID                int64         `json:"id"`
	SupportID         int64         `json:"support_id"`
	ProjectID         int64         `json:"project_id"`
	ProviderDisputeID string        `json:"provider_dispute_id"`
	Status            DisputeStatus `json:"status"`
	AmountMinor       int64         `json:"amount_minor"`
	Currency          string        `json:"currency"`
	Reason            string        `json:"reason"`
	FinalLiability    *string       `json:"final_liability,omitempty"`
	OpenedAt          time.Time     `json:"opened_at"`
	ResolvedAt        *time.Time    `json:"resolved_at,omitempty"`
}

// DisputeEvent is the append-only audit trail of a dispute, including
// operator recovery attempts.
type DisputeEvent struct {
	ID          int64     `json:"id"`
	DisputeID   int64     `json:"dispute_id"`
	Kind        string    `json:"kind"`
	Action      string    `json:"action,omitempty"`
	AmountMinor *int64    `json:"amount_minor,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type RefundStatus string

const (
	RefundCompleted RefundStatus = "completed"
)

// RefundRecord is the single refund outcome per support transaction.
// Upserted so redelivered refund webhooks converge on one row.
type RefundRecord struct {
	ID               int64        `json:"id"`
	SupportID        int64        `json:"support_id"`
	ProviderRefundID string       `json:"provider_refund_id"`
	Reason           string       `json:"reason"`
	AmountMinor      int64        `json:"amount_minor"`
	Currency         string       `json:"currency"`
	Status           RefundStatus `json:"status"`
	RequestedAt      time.Time    `json:"requested_at"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}

// model/support.go
package model

import "time"

type SupportStatus string

const (
	SupportPrepared            SupportStatus = "prepared"
	SupportPendingConfirmation SupportStatus = "pending_confirmation"
	SupportSucceeded           SupportStatus = "succeeded"
	SupportFailed              SupportStatus = "failed"
	SupportCanceled            SupportStatus = "canceled"
	SupportRefunded            SupportStatus = "refunded"
)

// SupportTransaction is one pledge. Amount and currency are fixed at
// creation; only status and the transition timestamps ever change.
type SupportTransaction struct {
	ID                 int64         `json:"id"`
	ProjectID          int64         `json:"project_id"`
	PlanID             int64         `json:"plan_id"`
	SupporterID        int64         `json:"supporter_id"`
	AmountMinor        int64         `json:"amount_minor"`
	Currency           string        `json:"currency"`
	Status             SupportStatus `json:"status"`
	CheckoutSessionRef string        `json:"checkout_session_ref"`
	CreatedAt          time.Time     `json:"created_at"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`
	SucceededAt        *time.Time    `json:"succeeded_at,omitempty"`
	RefundedAt         *time.Time    `json:"refunded_at,omitempty"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

type StatusActor string

const (
	ActorUser    StatusActor = "user"
	ActorWebhook StatusActor = "webhook"
)

// SupportStatusHistory is an append-only audit row, one per transition.
type SupportStatusHistory struct {
	ID         int64         `json:"id"`
	SupportID  int64         `json:"support_id"`
	FromStatus SupportStatus `json:"from_status"`
	ToStatus   SupportStatus `json:"to_status"`
	Reason     string        `json:"reason"`
	Actor      StatusActor   `json:"actor"`
	CreatedAt  time.Time     `json:"created_at"`
}

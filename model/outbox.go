// model/outbox.go
package model

import (
	"encoding/json"
	"time"
)

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxEvent is enqueued in the same transaction as the business state
// change it announces. EventID is the caller-supplied dedup key and travels
// in the delivery payload so receivers can deduplicate too.
// A terminally failed event has Status failed and a nil NextAttemptAt.
type OutboxEvent struct {
	EventID       string          `json:"event_id"`
	Topic         string          `json:"topic"`
	Payload       json.RawMessage `json:"payload"`
	Status        OutboxStatus    `json:"status"`
	AttemptCount  int             `json:"attempt_count"`
	NextAttemptAt *time.Time      `json:"next_attempt_at,omitempty"`
	LastError     *string         `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
}

// OutboxDeliveryAttempt audits one delivery attempt, unique on
// (EventID, AttemptNo) so crash-and-resume cannot duplicate rows.
type OutboxDeliveryAttempt struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"event_id"`
	AttemptNo  int       `json:"attempt_no"`
	Transport  string    `json:"transport"`
	Outcome    string    `json:"outcome"`
	HTTPStatus *int      `json:"http_status,omitempty"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OutboxBacklog is the operator-facing queue summary.
type OutboxBacklog struct {
	Pending        int64 `json:"pending"`
	Retryable      int64 `json:"retryable"`
	TerminalFailed int64 `json:"terminal_failed"`
	Sent           int64 `json:"sent"`
}

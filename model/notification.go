// model/notification.go
package model

import (
	"encoding/json"
	"time"
)

type NotificationRecipient string

const (
	RecipientCreator   NotificationRecipient = "creator"
	RecipientSupporter NotificationRecipient = "supporter"
)

// NotificationEvent is a fire-and-forget delivery row. A failed send is left
// unsent for the next poll cycle; there is no retry bookkeeping.
type NotificationEvent struct {
	ID        int64                 `json:"id"`
	Recipient NotificationRecipient `json:"recipient"`
	SupportID *int64                `json:"support_id,omitempty"`
	Kind      string                `json:"kind"`
	Payload   json.RawMessage       `json:"payload"`
	CreatedAt time.Time             `json:"created_at"`
	SentAt    *time.Time            `json:"sent_at,omitempty"`
}

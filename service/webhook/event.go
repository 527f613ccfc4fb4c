package webhooksvc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event is the tagged union over the provider event kinds this core reacts
// to. Unknown kinds parse into Unknown and are deliberately ignored by the
// dispatcher, never treated as an error.
type Event interface{ kind() string }

type CheckoutCompleted struct {
	SupportID int64
}

type CheckoutExpired struct {
	SupportID int64
}

type RefundCompleted struct {
	SupportID        int64
	ProviderRefundID string
	Reason           string
}

type DisputeOpened struct {
	ProviderDisputeID string
	SupportID         int64
	AmountMinor       int64
	Currency          string
	Reason            string
}

type DisputeClosed struct {
	ProviderDisputeID string
	Outcome           string
	Reason            string
}

type Unknown struct {
	Type string
}

func (CheckoutCompleted) kind() string { return "checkout_completed" }
func (CheckoutExpired) kind() string   { return "checkout_expired" }
func (RefundCompleted) kind() string   { return "refund_completed" }
func (DisputeOpened) kind() string     { return "dispute_opened" }
func (DisputeClosed) kind() string     { return "dispute_closed" }
func (Unknown) kind() string           { return "unknown" }

type envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Parse maps a signature-verified provider payload onto the event union.
// It returns the provider event id (the dedup key) alongside the event.
func Parse(raw []byte) (string, Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("bad webhook json: %w", err)
	}
	if env.ID == "" || env.Type == "" {
		return "", nil, errors.New("webhook event missing id or type")
	}

	switch env.Type {
	case "checkout.session.completed":
		var d struct {
			SupportID int64 `json:"support_id"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil || d.SupportID == 0 {
			return "", nil, fmt.Errorf("event %s: missing support_id", env.ID)
		}
		return env.ID, CheckoutCompleted{SupportID: d.SupportID}, nil

	case "checkout.session.expired":
		var d struct {
			SupportID int64 `json:"support_id"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil || d.SupportID == 0 {
			return "", nil, fmt.Errorf("event %s: missing support_id", env.ID)
		}
		return env.ID, CheckoutExpired{SupportID: d.SupportID}, nil

	case "charge.refunded":
		var d struct {
			SupportID int64  `json:"support_id"`
			RefundID  string `json:"refund_id"`
			Reason    string `json:"reason"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil || d.SupportID == 0 || d.RefundID == "" {
			return "", nil, fmt.Errorf("event %s: missing support_id or refund_id", env.ID)
		}
		return env.ID, RefundCompleted{SupportID: d.SupportID, ProviderRefundID: d.RefundID, Reason: d.Reason}, nil

	case "charge.dispute.created":
		var d struct {
			DisputeID string `json:"dispute_id"`
			SupportID int64  `json:"support_id"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
			Reason    string `json:"reason"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil || d.DisputeID == "" || d.SupportID == 0 {
			return "", nil, fmt.Errorf("event %s: missing dispute_id or support_id", env.ID)
		}
		return env.ID, DisputeOpened{
			ProviderDisputeID: d.DisputeID,
			SupportID:         d.SupportID,
			AmountMinor:       d.Amount,
			Currency:          d.Currency,
			Reason:            d.Reason,
		}, nil

	case "charge.dispute.closed":
		var d struct {
			DisputeID string `json:"dispute_id"`
			Status    string `json:"status"`
			Reason    string `json:"reason"`
		}
		if err := json.Unmarshal(env.Data, &d); err != nil || d.DisputeID == "" || d.Status == "" {
			return "", nil, fmt.Errorf("event %s: missing dispute_id or status", env.ID)
		}
		return env.ID, DisputeClosed{ProviderDisputeID: d.DisputeID, Outcome: d.Status, Reason: d.Reason}, nil

	default:
		return env.ID, Unknown{Type: env.Type}, nil
	}
}

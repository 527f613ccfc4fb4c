// model/journal.go
package model

import "time"

type EntryType string

const (
	EntrySupportHeld            EntryType = "SUPPORT_HELD"
	EntrySupportRefunded        EntryType = "SUPPORT_REFUNDED"
	EntryDisputeOpened          EntryType = "DISPUTE_OPENED"
	EntryDisputeReserveReleased EntryType = "DISPUTE_RESERVE_RELEASED"
	EntryDisputeReservePaidOut  EntryType = "DISPUTE_RESERVE_PAID_OUT"
	EntryDisputeLoss            EntryType = "DISPUTE_LOSS"
	EntryPayoutReleased         EntryType = "PAYOUT_RELEASED"
)

// JournalEntry is one business event. Immutable once committed; lines are
// always written in the same transaction as the entry.
type JournalEntry struct {
	ID          int64         `json:"id"`
	EntryType   EntryType     `json:"entry_type"`
	ProjectID   *int64        `json:"project_id,omitempty"`
	SupportID   *int64        `json:"support_id,omitempty"`
	DisputeID   *int64        `json:"dispute_id,omitempty"`
	OccurredAt  time.Time     `json:"occurred_at"`
	Description string        `json:"description"`
	Lines       []JournalLine `json:"lines"`
}

// JournalLine is one leg of an entry. Exactly one of DebitMinor/CreditMinor
// is non-zero per line.
type JournalLine struct {
	ID          int64       `json:"id"`
	EntryID     int64       `json:"entry_id"`
	AccountCode AccountCode `json:"account_code"`
	Currency    string      `json:"currency"`
	DebitMinor  int64       `json:"debit_minor"`
	CreditMinor int64       `json:"credit_minor"`
}

// EntryLinks ties an entry to the entities it describes.
type EntryLinks struct {
	ProjectID *int64
	SupportID *int64
	DisputeID *int64
}

type JournalFilter struct {
	ProjectID *int64
	SupportID *int64
	Limit     int
}

// Debit and Credit build one-sided lines; entries are composed of matched
// pairs so the per-currency balance invariant holds by construction.
func Debit(code AccountCode, currency string, amountMinor int64) JournalLine {
	return JournalLine{AccountCode: code, Currency: currency, DebitMinor: amountMinor}
}

func Credit(code AccountCode, currency string, amountMinor int64) JournalLine {
	return JournalLine{AccountCode: code, Currency: currency, CreditMinor: amountMinor}
}

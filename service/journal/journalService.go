package journalsvc

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type Repo interface {
	InsertEntry(ctx context.Context, tx *sql.Tx, e *model.JournalEntry) error
	InsertLine(ctx context.Context, tx *sql.Tx, entryID int64, l model.JournalLine) error
	ListEntries(ctx context.Context, f model.JournalFilter) ([]model.JournalEntry, error)
}

// Engine appends balanced entries inside the caller's transaction and serves
// lock-free reporting reads.
type Engine interface {
	Append(ctx context.Context, tx *sql.Tx, entryType model.EntryType, links model.EntryLinks, description string, lines []model.JournalLine) (*model.JournalEntry, error)
	List(ctx context.Context, f model.JournalFilter) ([]model.JournalEntry, error)
}

type engine struct{ r Repo }

func New(r Repo) Engine { return &engine{r: r} }

const maxListLimit = 200

// Append validates the line set and writes entry + lines in tx. An
// unbalanced set or unknown account is a defect in the caller: the error
// aborts the surrounding transaction and is never retried.
func (e *engine) Append(ctx context.Context, tx *sql.Tx, entryType model.EntryType, links model.EntryLinks, description string, lines []model.JournalLine) (*model.JournalEntry, error) {
	if err := validateLines(lines); err != nil {
		return nil, fmt.Errorf("journal entry %s: %w", entryType, err)
	}

	entry := &model.JournalEntry{
		EntryType:   entryType,
		ProjectID:   links.ProjectID,
		SupportID:   links.SupportID,
		DisputeID:   links.DisputeID,
		Description: description,
	}
	if err := e.r.InsertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	for _, l := range lines {
		if err := e.r.InsertLine(ctx, tx, entry.ID, l); err != nil {
			return nil, err
		}
	}
	entry.Lines = lines
	return entry, nil
}

func validateLines(lines []model.JournalLine) error {
	if len(lines) < 2 {
		return fmt.Errorf("entry needs at least two lines, got %d", len(lines))
	}
	type sums struct{ debit, credit int64 }
	perCurrency := map[string]*sums{}
	for _, l := range lines {
		if !model.KnownAccount(l.AccountCode) {
			return fmt.Errorf("unknown ledger account %q", l.AccountCode)
		}
		if l.DebitMinor < 0 || l.CreditMinor < 0 {
			return fmt.Errorf("negative amount on account %q", l.AccountCode)
		}
		if (l.DebitMinor == 0) == (l.CreditMinor == 0) {
			return fmt.Errorf("line on account %q must have exactly one non-zero side", l.AccountCode)
		}
		s := perCurrency[l.Currency]
		if s == nil {
			s = &sums{}
			perCurrency[l.Currency] = s
		}
		s.debit += l.DebitMinor
		s.credit += l.CreditMinor
	}
	for cur, s := range perCurrency {
		if s.debit != s.credit {
			return fmt.Errorf("unbalanced lines in %s: debit %d != credit %d", cur, s.debit, s.credit)
		}
	}
	return nil
}

func (e *engine) List(ctx context.Context, f model.JournalFilter) ([]model.JournalEntry, error) {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return e.r.ListEntries(ctx, f)
}

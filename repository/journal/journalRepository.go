package journalrepo

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type Repo interface {
	// InsertEntry and InsertLine run in the caller's transaction so an entry
	// and its lines commit or abort together.
	InsertEntry(ctx context.Context, tx *sql.Tx, e *model.JournalEntry) error
	InsertLine(ctx context.Context, tx *sql.Tx, entryID int64, l model.JournalLine) error

	// ListEntries is a lock-free newest-first scan with nested lines.
	ListEntries(ctx context.Context, f model.JournalFilter) ([]model.JournalEntry, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) InsertEntry(ctx context.Context, tx *sql.Tx, e *model.JournalEntry) error {
	const q = `
INSERT INTO journal_entries (entry_type, project_id, support_id, dispute_id, description)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, occurred_at`
	return tx.QueryRowContext(ctx, q,
		e.EntryType, e.ProjectID, e.SupportID, e.DisputeID, e.Description,
	).Scan(&e.ID, &e.OccurredAt)
}

func (r *repo) InsertLine(ctx context.Context, tx *sql.Tx, entryID int64, l model.JournalLine) error {
	const q = `
INSERT INTO journal_lines (entry_id, account_code, currency, debit_minor, credit_minor)
VALUES ($1,$2,$3,$4,$5)`
	_, err := tx.ExecContext(ctx, q, entryID, l.AccountCode, l.Currency, l.DebitMinor, l.CreditMinor)
	return err
}

func (r *repo) ListEntries(ctx context.Context, f model.JournalFilter) ([]model.JournalEntry, error) {
	q := `
SELECT id, entry_type, project_id, support_id, dispute_id, occurred_at, description
FROM journal_entries`
	var args []any
	where := ""
	if f.ProjectID != nil {
		args = append(args, *f.ProjectID)
		where = " WHERE project_id=$" + strconv.Itoa(len(args))
	}
	if f.SupportID != nil {
		args = append(args, *f.SupportID)
		clause := "support_id=$" + strconv.Itoa(len(args))
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}
	args = append(args, f.Limit)
	q += where + " ORDER BY occurred_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.JournalEntry
	var ids []int64
	for rows.Next() {
		var e model.JournalEntry
		if err := rows.Scan(&e.ID, &e.EntryType, &e.ProjectID, &e.SupportID, &e.DisputeID, &e.OccurredAt, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	const lq = `
SELECT id, entry_id, account_code, currency, debit_minor, credit_minor
FROM journal_lines
WHERE entry_id = ANY($1)
ORDER BY id`
	lrows, err := r.db.QueryContext(ctx, lq, ids)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()

	byEntry := make(map[int64][]model.JournalLine, len(out))
	for lrows.Next() {
		var l model.JournalLine
		if err := lrows.Scan(&l.ID, &l.EntryID, &l.AccountCode, &l.Currency, &l.DebitMinor, &l.CreditMinor); err != nil {
			return nil, err
		}
		byEntry[l.EntryID] = append(byEntry[l.EntryID], l)
	}
	if err := lrows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = byEntry[out[i].ID]
	}
	return out, nil
}

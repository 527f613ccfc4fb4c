package payoutsvc_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	payoutsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/payout"

	"github.com/stretchr/testify/require"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/testdb"
)

type journalMock struct {
	entries []model.JournalEntry
	lines   [][]model.JournalLine
}

func (m *journalMock) Append(ctx context.Context, tx *sql.Tx, entryType model.EntryType, links model.EntryLinks, description string, lines []model.JournalLine) (*model.JournalEntry, error) {
	e := model.JournalEntry{ID: int64(len(m.entries) + 1), EntryType: entryType, ProjectID: links.ProjectID, Description: description}
	m.entries = append(m.entries, e)
	m.lines = append(m.lines, lines)
	return &e, nil
}

type outboxMock struct{ events []model.OutboxEvent }

func (m *outboxMock) Enqueue(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error {
	m.events = append(m.events, *ev)
	return nil
}

func TestReleaseBooksPayableEntry(t *testing.T) {
	j := &journalMock{}
	ob := &outboxMock{}
	svc := payoutsvc.New(testdb.New(), j, ob, slog.Default())

	entry, err := svc.Release(context.Background(), 42, 150000, "JPY", "milestone 1")
	require.NoError(t, err)
	require.Equal(t, model.EntryPayoutReleased, entry.EntryType)

	require.Len(t, j.lines, 1)
	lines := j.lines[0]
	require.Len(t, lines, 2)
	require.Equal(t, model.AccountSupportLiability, lines[0].AccountCode)
	require.Equal(t, int64(150000), lines[0].DebitMinor)
	require.Equal(t, model.AccountCreatorPayable, lines[1].AccountCode)
	require.Equal(t, int64(150000), lines[1].CreditMinor)

	require.Len(t, ob.events, 1)
	require.Equal(t, "payout.released", ob.events[0].Topic)
}

func TestReleaseRejectsBadInput(t *testing.T) {
	svc := payoutsvc.New(testdb.New(), &journalMock{}, &outboxMock{}, slog.Default())

	_, err := svc.Release(context.Background(), 42, 0, "JPY", "")
	require.Equal(t, errs.CodeValidation, errs.Code(err))

	_, err = svc.Release(context.Background(), 42, 1000, "YEN2", "")
	require.Equal(t, errs.CodeValidation, errs.Code(err))
}

package disputesvc_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	disputesvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/dispute"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/testdb"
)

type repoMock struct {
	nextID     int64
	byProvider map[string]*model.Dispute
	events     []model.DisputeEvent
}

func newRepoMock() *repoMock {
	return &repoMock{nextID: 1, byProvider: map[string]*model.Dispute{}}
}

func (m *repoMock) InsertIfAbsent(ctx context.Context, tx *sql.Tx, d *model.Dispute) (bool, error) {
	if _, ok := m.byProvider[d.ProviderDisputeID]; ok {
		return false, nil
	}
	d.ID = m.nextID
	m.nextID++
	d.Status = model.DisputeOpen
	cp := *d
	m.byProvider[d.ProviderDisputeID] = &cp
	return true, nil
}

func (m *repoMock) GetByProviderID(ctx context.Context, providerDisputeID string) (*model.Dispute, error) {
	d, ok := m.byProvider[providerDisputeID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (m *repoMock) GetByProviderIDForUpdate(ctx context.Context, tx *sql.Tx, providerDisputeID string) (*model.Dispute, error) {
	return m.GetByProviderID(ctx, providerDisputeID)
}

func (m *repoMock) GetByID(ctx context.Context, id int64) (*model.Dispute, error) {
	for _, d := range m.byProvider {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *repoMock) Close(ctx context.Context, tx *sql.Tx, id int64, status model.DisputeStatus, finalLiability string) error {
	for _, d := range m.byProvider {
		if d.ID == id {
			d.Status = status
			d.FinalLiability = &finalLiability
		}
	}
	return nil
}

func (m *repoMock) InsertEvent(ctx context.Context, tx *sql.Tx, ev *model.DisputeEvent) error {
	m.events = append(m.events, *ev)
	return nil
}

type supportMock struct{ support *model.SupportTransaction }

func (s *supportMock) Get(ctx context.Context, supportID int64) (*model.SupportTransaction, error) {
	if s.support == nil || s.support.ID != supportID {
		return nil, errs.NotFound("support not found")
	}
	cp := *s.support
	return &cp, nil
}

type journalMock struct{ entries []model.JournalEntry }

func (j *journalMock) Append(ctx context.Context, tx *sql.Tx, entryType model.EntryType, links model.EntryLinks, description string, lines []model.JournalLine) (*model.JournalEntry, error) {
	e := model.JournalEntry{ID: int64(len(j.entries) + 1), EntryType: entryType, Lines: lines}
	j.entries = append(j.entries, e)
	return &e, nil
}

type outboxMock struct{ events []model.OutboxEvent }

func (o *outboxMock) Enqueue(ctx context.Context, tx *sql.Tx, ev *model.OutboxEvent) error {
	o.events = append(o.events, *ev)
	return nil
}

type fixture struct {
	svc     disputesvc.Service
	repo    *repoMock
	journal *journalMock
	outbox  *outboxMock
}

func newFixture() *fixture {
	f := &fixture{repo: newRepoMock(), journal: &journalMock{}, outbox: &outboxMock{}}
	supports := &supportMock{support: &model.SupportTransaction{
		ID: 7, ProjectID: 10, AmountMinor: 1000, Currency: "JPY", Status: model.SupportSucceeded,
	}}
	f.svc = disputesvc.New(testdb.New(), f.repo, supports, f.journal, f.outbox, slog.Default())
	return f
}

func TestOpenBooksReserveOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.svc.Open(ctx, "dp_1", 7, 1000, "JPY", "fraudulent")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if d.Status != model.DisputeOpen {
		t.Fatalf("status = %s; want open", d.Status)
	}
	if len(f.journal.entries) != 1 {
		t.Fatalf("journal entries = %d; want 1", len(f.journal.entries))
	}
	e := f.journal.entries[0]
	if e.Lines[0].AccountCode != model.AccountSupportLiability || e.Lines[0].DebitMinor != 1000 {
		t.Fatalf("unexpected reserve debit %+v", e.Lines[0])
	}
	if e.Lines[1].AccountCode != model.AccountDisputeReserve || e.Lines[1].CreditMinor != 1000 {
		t.Fatalf("unexpected reserve credit %+v", e.Lines[1])
	}

	// provider redelivers the same notice
	again, err := f.svc.Open(ctx, "dp_1", 7, 1000, "JPY", "fraudulent")
	if err != nil {
		t.Fatalf("open replay: %v", err)
	}
	if again.ID != d.ID {
		t.Fatalf("replay returned a different dispute: %d vs %d", again.ID, d.ID)
	}
	if len(f.journal.entries) != 1 {
		t.Fatal("replay must not book a second reserve entry")
	}
}

func TestOpenUnknownSupport(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Open(context.Background(), "dp_2", 404, 1000, "JPY", "fraudulent")
	if errs.Code(err) != errs.CodeNotFound {
		t.Fatalf("got %v; want RESOURCE_NOT_FOUND", err)
	}
}

func TestCloseWon(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Open(ctx, "dp_1", 7, 1000, "JPY", "fraudulent"); err != nil {
		t.Fatal(err)
	}

	d, err := f.svc.Close(ctx, "dp_1", "won", "evidence accepted")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if d.Status != model.DisputeWon || d.FinalLiability == nil || *d.FinalLiability != model.LiabilityProvider {
		t.Fatalf("unexpected resolution %+v", d)
	}
	if len(f.journal.entries) != 2 { // reserve + release
		t.Fatalf("journal entries = %d; want 2", len(f.journal.entries))
	}
	rel := f.journal.entries[1]
	if rel.EntryType != model.EntryDisputeReserveReleased {
		t.Fatalf("entry type = %s", rel.EntryType)
	}
}

func TestCloseLostBooksTwoEntries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Open(ctx, "dp_1", 7, 1000, "JPY", "fraudulent"); err != nil {
		t.Fatal(err)
	}

	d, err := f.svc.Close(ctx, "dp_1", "lost", "no evidence")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if d.Status != model.DisputeLost || *d.FinalLiability != model.LiabilityPlatform {
		t.Fatalf("unexpected resolution %+v", d)
	}
	if len(f.journal.entries) != 3 { // reserve + payout + loss
		t.Fatalf("journal entries = %d; want 3", len(f.journal.entries))
	}
	payout := f.journal.entries[1]
	if payout.EntryType != model.EntryDisputeReservePaidOut ||
		payout.Lines[1].AccountCode != model.AccountCashClearing {
		t.Fatalf("unexpected payout entry %+v", payout)
	}
	loss := f.journal.entries[2]
	if loss.EntryType != model.EntryDisputeLoss ||
		loss.Lines[0].AccountCode != model.AccountDisputeLossExpense ||
		loss.Lines[1].AccountCode != model.AccountSupportLiability {
		t.Fatalf("unexpected loss entry %+v", loss)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Open(ctx, "dp_1", 7, 1000, "JPY", "fraudulent"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Close(ctx, "dp_1", "won", ""); err != nil {
		t.Fatal(err)
	}
	entriesAfterWin := len(f.journal.entries)

	d, err := f.svc.Close(ctx, "dp_1", "lost", "second notice")
	if err != nil {
		t.Fatalf("close replay: %v", err)
	}
	if d.Status != model.DisputeWon {
		t.Fatalf("terminal status changed to %s", d.Status)
	}
	if len(f.journal.entries) != entriesAfterWin {
		t.Fatal("close replay must not book new lines")
	}
}

func TestCloseUnknownOutcome(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Close(context.Background(), "dp_1", "draw", "")
	if errs.Code(err) != errs.CodeValidation {
		t.Fatalf("got %v; want VALIDATION_ERROR", err)
	}
}

func TestRecoveryAttemptAuditOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Open(ctx, "dp_1", 7, 1000, "JPY", "fraudulent"); err != nil {
		t.Fatal(err)
	}
	entriesBefore := len(f.journal.entries)

	if err := f.svc.RecoveryAttempt(ctx, 1, "reverse_transfer", 1000, "JPY", "manual follow-up"); err != nil {
		t.Fatalf("recovery attempt: %v", err)
	}
	if len(f.journal.entries) != entriesBefore {
		t.Fatal("recovery attempt must not move ledger funds")
	}
	last := f.repo.events[len(f.repo.events)-1]
	if last.Kind != "recovery_attempt" || last.Action != "reverse_transfer" {
		t.Fatalf("unexpected audit event %+v", last)
	}

	err := f.svc.RecoveryAttempt(ctx, 404, "reverse_transfer", 1000, "JPY", "")
	if errs.Code(err) != errs.CodeNotFound {
		t.Fatalf("got %v; want RESOURCE_NOT_FOUND", err)
	}
}

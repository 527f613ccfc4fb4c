package notifsvc_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	notifsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/notification"

	"github.com/stretchr/testify/require"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/testdb"
)

type repoMock struct {
	events map[int64]*model.NotificationEvent
}

func newRepoMock(kinds ...string) *repoMock {
	m := &repoMock{events: map[int64]*model.NotificationEvent{}}
	for i, k := range kinds {
		id := int64(i + 1)
		m.events[id] = &model.NotificationEvent{
			ID: id, Recipient: model.RecipientSupporter, Kind: k, CreatedAt: time.Now().UTC(),
		}
	}
	return m
}

func (m *repoMock) Enqueue(ctx context.Context, tx *sql.Tx, n *model.NotificationEvent) error {
	n.ID = int64(len(m.events) + 1)
	m.events[n.ID] = n
	return nil
}

func (m *repoMock) ClaimUnsent(ctx context.Context, tx *sql.Tx, limit int) ([]model.NotificationEvent, error) {
	var out []model.NotificationEvent
	for id := int64(1); id <= int64(len(m.events)); id++ {
		if ev, ok := m.events[id]; ok && ev.SentAt == nil && len(out) < limit {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *repoMock) MarkSent(ctx context.Context, tx *sql.Tx, id int64) error {
	now := time.Now().UTC()
	m.events[id].SentAt = &now
	return nil
}

func (m *repoMock) CountUnsent(ctx context.Context) (int64, error) {
	var n int64
	for _, ev := range m.events {
		if ev.SentAt == nil {
			n++
		}
	}
	return n, nil
}

type flakySender struct {
	failKind string
	sent     []int64
}

func (s *flakySender) Send(_ context.Context, n model.NotificationEvent) error {
	if n.Kind == s.failKind {
		return errors.New("smtp connection refused")
	}
	s.sent = append(s.sent, n.ID)
	return nil
}

func TestSendsAndMarksBatch(t *testing.T) {
	m := newRepoMock("support_succeeded", "support_refunded")
	sender := &flakySender{}
	rl := notifsvc.NewRelay(testdb.New(), m, sender, time.Second, slog.Default())

	n, err := rl.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.ElementsMatch(t, []int64{1, 2}, sender.sent)
	left, _ := m.CountUnsent(context.Background())
	require.Zero(t, left)
}

func TestFailedSendStaysQueued(t *testing.T) {
	m := newRepoMock("support_succeeded", "dispute_opened")
	sender := &flakySender{failKind: "dispute_opened"}
	rl := notifsvc.NewRelay(testdb.New(), m, sender, time.Second, slog.Default())
	ctx := context.Background()

	n, err := rl.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotNil(t, m.events[1].SentAt)
	require.Nil(t, m.events[2].SentAt, "failed send must stay unsent")

	// the stuck event is retried next cycle
	sender.failKind = ""
	n, err = rl.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotNil(t, m.events[2].SentAt)
}

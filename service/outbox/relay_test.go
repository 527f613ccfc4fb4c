package outboxsvc_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	outboxsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/outbox"

	"github.com/stretchr/testify/require"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/testdb"
)

type repoMock struct {
	events   map[string]*model.OutboxEvent
	attempts []model.OutboxDeliveryAttempt
}

func newRepoMock(events ...*model.OutboxEvent) *repoMock {
	m := &repoMock{events: map[string]*model.OutboxEvent{}}
	for _, ev := range events {
		if ev.Status == "" {
			ev.Status = model.OutboxPending
		}
		if ev.NextAttemptAt == nil {
			now := time.Now().UTC().Add(-time.Second)
			ev.NextAttemptAt = &now
		}
		m.events[ev.EventID] = ev
	}
	return m
}

func (m *repoMock) ClaimBatch(ctx context.Context, tx *sql.Tx, limit int, now time.Time) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	for _, ev := range m.events {
		if len(out) >= limit {
			break
		}
		if (ev.Status == model.OutboxPending || ev.Status == model.OutboxFailed) &&
			ev.NextAttemptAt != nil && !ev.NextAttemptAt.After(now) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *repoMock) MarkSent(ctx context.Context, tx *sql.Tx, eventID string) error {
	ev := m.events[eventID]
	ev.Status = model.OutboxSent
	ev.NextAttemptAt = nil
	return nil
}

func (m *repoMock) Reschedule(ctx context.Context, tx *sql.Tx, eventID string, attempts int, next time.Time, lastErr string) error {
	ev := m.events[eventID]
	ev.Status = model.OutboxFailed
	ev.AttemptCount = attempts
	ev.NextAttemptAt = &next
	ev.LastError = &lastErr
	return nil
}

func (m *repoMock) MarkTerminallyFailed(ctx context.Context, tx *sql.Tx, eventID string, attempts int, lastErr string) error {
	ev := m.events[eventID]
	ev.Status = model.OutboxFailed
	ev.AttemptCount = attempts
	ev.NextAttemptAt = nil
	ev.LastError = &lastErr
	return nil
}

func (m *repoMock) InsertAttempt(ctx context.Context, tx *sql.Tx, a *model.OutboxDeliveryAttempt) error {
	for _, prev := range m.attempts {
		if prev.EventID == a.EventID && prev.AttemptNo == a.AttemptNo {
			return nil // unique (event_id, attempt_no)
		}
	}
	m.attempts = append(m.attempts, *a)
	return nil
}

type failingSink struct{ calls int }

func (s *failingSink) Deliver(ctx context.Context, ev model.OutboxEvent) (string, int, error) {
	s.calls++
	return "http", 502, errors.New("sink returned 502 Bad Gateway")
}

func event(id string) *model.OutboxEvent {
	return &model.OutboxEvent{EventID: id, Topic: "support.succeeded", Payload: []byte(`{"support_id":7}`)}
}

func newRelay(m *repoMock, sink outboxsvc.Sink) *outboxsvc.Relay {
	return outboxsvc.NewRelay(testdb.New(), m, sink, outboxsvc.Config{
		PollInterval:  time.Millisecond,
		BatchSize:     10,
		MaxAttempts:   8,
		BackoffCapSec: 300,
	}, slog.Default())
}

func TestDeliverSuccess(t *testing.T) {
	m := newRepoMock(event("ev_1"))
	rl := newRelay(m, outboxsvc.NoopSink{})

	n, err := rl.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, model.OutboxSent, m.events["ev_1"].Status)
	require.Len(t, m.attempts, 1)
	require.Equal(t, "success", m.attempts[0].Outcome)
	require.Equal(t, 1, m.attempts[0].AttemptNo)
}

func TestRetryCeilingReachesTerminalFailure(t *testing.T) {
	m := newRepoMock(event("ev_1"))
	sink := &failingSink{}
	rl := newRelay(m, sink)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		// make the event due again regardless of the backoff schedule
		past := time.Now().UTC().Add(-time.Hour)
		m.events["ev_1"].NextAttemptAt = &past
		_, err := rl.RunOnce(ctx)
		require.NoError(t, err)
	}

	ev := m.events["ev_1"]
	require.Equal(t, model.OutboxFailed, ev.Status)
	require.Equal(t, 8, ev.AttemptCount)
	require.Nil(t, ev.NextAttemptAt, "terminal failure must stop scheduling")
	require.NotNil(t, ev.LastError)

	// attempts 1..8, each audited exactly once
	require.Len(t, m.attempts, 8)
	for i, a := range m.attempts {
		require.Equal(t, i+1, a.AttemptNo)
		require.Equal(t, "failure", a.Outcome)
	}

	// a further poll finds nothing to do
	n, err := rl.RunOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 8, sink.calls)
}

func TestBackoffSchedule(t *testing.T) {
	rl := newRelay(newRepoMock(), outboxsvc.NoopSink{})

	require.Equal(t, 2*time.Second, rl.Backoff(1))
	require.Equal(t, 4*time.Second, rl.Backoff(2))
	require.Equal(t, 128*time.Second, rl.Backoff(7))
	require.Equal(t, 300*time.Second, rl.Backoff(9))  // capped
	require.Equal(t, 300*time.Second, rl.Backoff(40)) // no overflow
}

func TestRescheduleKeepsRetryable(t *testing.T) {
	m := newRepoMock(event("ev_1"))
	rl := newRelay(m, &failingSink{})

	_, err := rl.RunOnce(context.Background())
	require.NoError(t, err)

	ev := m.events["ev_1"]
	require.Equal(t, model.OutboxFailed, ev.Status)
	require.Equal(t, 1, ev.AttemptCount)
	require.NotNil(t, ev.NextAttemptAt, "retryable failure must stay scheduled")
	require.True(t, ev.NextAttemptAt.After(time.Now().UTC().Add(time.Second)))
}

func TestHTTPSinkCarriesEventID(t *testing.T) {
	var gotHeader string
	var gotBody struct {
		EventID string `json:"event_id"`
		Topic   string `json:"topic"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Event-Id")
		_ = jsonDecode(r, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := outboxsvc.NewHTTPSink(srv.URL)
	transport, status, err := sink.Deliver(context.Background(), *event("ev_9"))
	require.NoError(t, err)
	require.Equal(t, "http", transport)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ev_9", gotHeader)
	require.Equal(t, "ev_9", gotBody.EventID)
	require.Equal(t, "support.succeeded", gotBody.Topic)
}

func TestHTTPSinkNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := outboxsvc.NewHTTPSink(srv.URL)
	_, status, err := sink.Deliver(context.Background(), *event("ev_9"))
	require.Error(t, err)
	require.Equal(t, http.StatusBadGateway, status)
	require.Equal(t, errs.CodeDelivery, errs.Code(err))
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

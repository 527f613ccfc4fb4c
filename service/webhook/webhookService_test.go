package webhooksvc_test

import (
	"context"
	"log/slog"
	"testing"

	webhooksvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/webhook"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

type supportMock struct {
	succeeded []int64
	failed    []int64
	refunded  []int64
}

func (m *supportMock) MarkSucceededByWebhook(ctx context.Context, id int64) (*model.SupportTransaction, error) {
	m.succeeded = append(m.succeeded, id)
	return &model.SupportTransaction{ID: id, Status: model.SupportSucceeded}, nil
}

func (m *supportMock) MarkFailedByWebhook(ctx context.Context, id int64) (*model.SupportTransaction, error) {
	m.failed = append(m.failed, id)
	return &model.SupportTransaction{ID: id, Status: model.SupportFailed}, nil
}

func (m *supportMock) MarkRefundedByWebhook(ctx context.Context, id int64, refundID, reason string) (*model.SupportTransaction, error) {
	m.refunded = append(m.refunded, id)
	return &model.SupportTransaction{ID: id, Status: model.SupportRefunded}, nil
}

type disputeMock struct {
	opened []string
	closed []string
}

func (m *disputeMock) Open(ctx context.Context, providerID string, supportID, amount int64, currency, reason string) (*model.Dispute, error) {
	m.opened = append(m.opened, providerID)
	return &model.Dispute{ProviderDisputeID: providerID, Status: model.DisputeOpen}, nil
}

func (m *disputeMock) Close(ctx context.Context, providerID, outcome, reason string) (*model.Dispute, error) {
	m.closed = append(m.closed, providerID+":"+outcome)
	return &model.Dispute{ProviderDisputeID: providerID}, nil
}

type dedupMock struct{ processed map[string]string }

func newDedupMock() *dedupMock { return &dedupMock{processed: map[string]string{}} }

func (m *dedupMock) Seen(ctx context.Context, id string) (bool, error) {
	_, ok := m.processed[id]
	return ok, nil
}

func (m *dedupMock) MarkProcessed(ctx context.Context, id, typ string) error {
	m.processed[id] = typ
	return nil
}

func newService() (webhooksvc.Service, *supportMock, *disputeMock, *dedupMock) {
	sm, dm, dd := &supportMock{}, &disputeMock{}, newDedupMock()
	return webhooksvc.New(sm, dm, dd, slog.Default()), sm, dm, dd
}

func TestHandleCheckoutCompleted(t *testing.T) {
	svc, sm, _, dd := newService()

	raw := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"support_id":7}}`)
	res, err := svc.Handle(context.Background(), raw)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.Outcome != "processed" {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if len(sm.succeeded) != 1 || sm.succeeded[0] != 7 {
		t.Fatalf("settled supports = %v", sm.succeeded)
	}
	if dd.processed["evt_1"] != "checkout_completed" {
		t.Fatalf("not marked processed: %v", dd.processed)
	}
}

func TestHandleDeduplicatesByProviderEventID(t *testing.T) {
	svc, sm, _, _ := newService()
	ctx := context.Background()
	raw := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"support_id":7}}`)

	if _, err := svc.Handle(ctx, raw); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Handle(ctx, raw)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if res.Outcome != "deduplicated" {
		t.Fatalf("outcome = %s; want deduplicated", res.Outcome)
	}
	if len(sm.succeeded) != 1 {
		t.Fatalf("handler ran %d times; want 1", len(sm.succeeded))
	}
}

func TestHandleDispatchTable(t *testing.T) {
	svc, sm, dm, _ := newService()
	ctx := context.Background()

	cases := []string{
		`{"id":"evt_exp","type":"checkout.session.expired","data":{"support_id":8}}`,
		`{"id":"evt_ref","type":"charge.refunded","data":{"support_id":7,"refund_id":"re_1","reason":"requested_by_customer"}}`,
		`{"id":"evt_dc","type":"charge.dispute.created","data":{"dispute_id":"dp_1","support_id":7,"amount":1000,"currency":"JPY","reason":"fraudulent"}}`,
		`{"id":"evt_dx","type":"charge.dispute.closed","data":{"dispute_id":"dp_1","status":"lost","reason":"no evidence"}}`,
	}
	for _, raw := range cases {
		if _, err := svc.Handle(ctx, []byte(raw)); err != nil {
			t.Fatalf("handle %s: %v", raw, err)
		}
	}
	if len(sm.failed) != 1 || len(sm.refunded) != 1 {
		t.Fatalf("support dispatch wrong: failed=%v refunded=%v", sm.failed, sm.refunded)
	}
	if len(dm.opened) != 1 || len(dm.closed) != 1 || dm.closed[0] != "dp_1:lost" {
		t.Fatalf("dispute dispatch wrong: opened=%v closed=%v", dm.opened, dm.closed)
	}
}

func TestHandleUnknownTypeIsIgnored(t *testing.T) {
	svc, sm, dm, _ := newService()

	res, err := svc.Handle(context.Background(), []byte(`{"id":"evt_x","type":"invoice.finalized","data":{}}`))
	if err != nil {
		t.Fatalf("unknown type must not error: %v", err)
	}
	if res.Outcome != "ignored" {
		t.Fatalf("outcome = %s; want ignored", res.Outcome)
	}
	if len(sm.succeeded)+len(sm.failed)+len(sm.refunded)+len(dm.opened)+len(dm.closed) != 0 {
		t.Fatal("unknown event must not dispatch")
	}
}

func TestHandleMalformedPayload(t *testing.T) {
	svc, _, _, _ := newService()

	for _, raw := range []string{
		`not json`,
		`{"type":"checkout.session.completed","data":{"support_id":7}}`,
		`{"id":"evt_1","type":"checkout.session.completed","data":{}}`,
		`{"id":"evt_2","type":"charge.refunded","data":{"support_id":7}}`,
	} {
		_, err := svc.Handle(context.Background(), []byte(raw))
		if errs.Code(err) != errs.CodeValidation {
			t.Fatalf("payload %q: got %v; want VALIDATION_ERROR", raw, err)
		}
	}
}

package webhooksvc

import (
	"context"
	"sync"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

// MemoryDedup is the transient-mode dedup store. Redeliveries are only
// caught within one process lifetime, which matches what the rest of the
// transient mode promises.
type MemoryDedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{seen: map[string]struct{}{}}
}

func (d *MemoryDedup) Seen(_ context.Context, providerEventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[providerEventID]
	return ok, nil
}

func (d *MemoryDedup) MarkProcessed(_ context.Context, providerEventID, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[providerEventID] = struct{}{}
	return nil
}

// UnavailableDisputes rejects dispute events while the durable store is
// down; the provider keeps redelivering until it comes back.
type UnavailableDisputes struct{}

func (UnavailableDisputes) Open(context.Context, string, int64, int64, string, string) (*model.Dispute, error) {
	return nil, errs.New(errs.CodeTransientStore, "dispute ledger requires the durable store")
}

func (UnavailableDisputes) Close(context.Context, string, string, string) (*model.Dispute, error) {
	return nil, errs.New(errs.CodeTransientStore, "dispute ledger requires the durable store")
}

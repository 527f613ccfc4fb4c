package idemstore

import (
	"context"
	"sync"
	"time"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type memStore struct {
	mu sync.Mutex
	m  map[string]model.IdempotencyRecord
}

// NewMemory returns the transient in-process store. Records do not survive a
// restart and are invisible to other instances; only suitable for a single
// process.
func NewMemory() Store {
	return &memStore{m: make(map[string]model.IdempotencyRecord)}
}

func memKey(routeKey, key string) string { return routeKey + "\x00" + key }

func (s *memStore) Lookup(_ context.Context, routeKey, key string) (*model.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[memKey(routeKey, key)]
	if !ok {
		return nil, nil
	}
	if time.Now().After(rec.ExpiresAt) {
		delete(s.m, memKey(routeKey, key))
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *memStore) Save(_ context.Context, rec *model.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(rec.RouteKey, rec.Key)
	if old, ok := s.m[k]; ok && time.Now().Before(old.ExpiresAt) {
		return nil
	}
	s.m[k] = *rec
	return nil
}

package supportsvc

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

// memStore backs the transient service mode. It keeps support transactions
// for one process lifetime only and is not safe under horizontal scaling;
// callers opted into this at startup.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	m      map[int64]*model.SupportTransaction
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, m: make(map[int64]*model.SupportTransaction)}
}

func (s *memStore) insert(support *model.SupportTransaction) *model.SupportTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	support.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	support.CreatedAt = now
	support.UpdatedAt = now
	cp := *support
	s.m[support.ID] = &cp
	return support
}

func (s *memStore) get(id int64) (*model.SupportTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[id]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("support %d not found", id))
	}
	cp := *cur
	return &cp, nil
}

func (s *memStore) confirm(id int64) (*model.SupportTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[id]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("support %d not found", id))
	}
	switch cur.Status {
	case model.SupportPendingConfirmation, model.SupportSucceeded:
	case model.SupportPrepared:
		now := time.Now().UTC()
		cur.Status = model.SupportPendingConfirmation
		cur.ConfirmedAt = &now
		cur.UpdatedAt = now
	default:
		return nil, errs.StateConflict(fmt.Sprintf("cannot confirm support in status %s", cur.Status))
	}
	cp := *cur
	return &cp, nil
}

func (s *memStore) cancel(id int64) (*model.SupportTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[id]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("support %d not found", id))
	}
	switch cur.Status {
	case model.SupportCanceled:
	case model.SupportPrepared, model.SupportPendingConfirmation:
		cur.Status = model.SupportCanceled
		cur.UpdatedAt = time.Now().UTC()
	default:
		return nil, errs.StateConflict(fmt.Sprintf("cannot cancel support in status %s", cur.Status))
	}
	cp := *cur
	return &cp, nil
}

// StaticPlans serves plan lookups in transient mode, where no database backs
// the catalog. The slice is read-only after construction.
type StaticPlans []model.Plan

func (p StaticPlans) GetPlan(_ context.Context, projectID, planID int64) (*model.Plan, error) {
	for i := range p {
		if p[i].ID == planID && p[i].ProjectID == projectID {
			cp := p[i]
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

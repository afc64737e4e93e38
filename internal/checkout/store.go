package checkout

import (
	"context"
	"errors"
	"sync"
)

var ErrDuplicateID = errors.New("duplicate id")

type Store interface {
	SaveReceipt(ctx context.Context, r Receipt) error
	Receipt(ctx context.Context, id string) (Receipt, bool, error)
	SaveCustomOrder(ctx context.Context, o CustomOrder) error
	CustomOrder(ctx context.Context, id string) (CustomOrder, bool, error)
}

type MemStore struct {
	mu       sync.RWMutex
	receipts map[string]Receipt
	custom   map[string]CustomOrder
}

func NewMemStore() *MemStore {
	return &MemStore{receipts: map[string]Receipt{}, custom: map[string]CustomOrder{}}
}

func (s *MemStore) SaveReceipt(_ context.Context, r Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receipts[r.ID]; ok {
		return ErrDuplicateID
	}
	s.receipts[r.ID] = r
	return nil
}

func (s *MemStore) Receipt(_ context.Context, id string) (Receipt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[id]
	return r, ok, nil
}

func (s *MemStore) SaveCustomOrder(_ context.Context, o CustomOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom[o.ID] = o
	return nil
}

func (s *MemStore) CustomOrder(_ context.Context, id string) (CustomOrder, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.custom[id]
	return o, ok, nil
}

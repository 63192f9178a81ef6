package order

import (
	"context"
	"slices"
	"sync"
)

type MemStore struct {
	mu    sync.RWMutex
	m     map[string]Order
	order []string
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Order{}}
}

func (s *MemStore) Create(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.m[o.ID]; !exists {
		s.order = append(s.order, o.ID)
	}
	o.Items = slices.Clone(o.Items)
	s.m[o.ID] = o
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.m[id]
	if !ok {
		return Order{}, false, nil
	}
	return clone(o), true, nil
}

func (s *MemStore) ListBySession(_ context.Context, sessionID string) ([]Order, error) {
	return s.collect(func(o Order) bool { return o.SessionID == sessionID }), nil
}

func (s *MemStore) ListAll(_ context.Context) ([]Order, error) {
	return s.collect(func(Order) bool { return true }), nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id string, status Status) (Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.m[id]
	if !ok {
		return Order{}, false, nil
	}
	o.Status = status
	s.m[id] = o
	return clone(o), true, nil
}

func (s *MemStore) collect(keep func(Order) bool) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		o := s.m[s.order[i]]
		if keep(o) {
			out = append(out, clone(o))
		}
	}
	return out
}

func clone(o Order) Order {
	o.Items = slices.Clone(o.Items)
	return o
}

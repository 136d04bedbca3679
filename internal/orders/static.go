package orders

import (
	"context"
	"sync"

	"github.com/tournevent/myparcel/pkg/carrier"
)

// StaticStore serves orders from memory.
type StaticStore struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

// NewStaticStore creates a store holding the given orders.
func NewStaticStore(orders ...*Order) *StaticStore {
	s := &StaticStore{orders: make(map[string]*Order)}
	for _, o := range orders {
		s.Put(o)
	}
	return s
}

// Put adds or replaces an order.
func (s *StaticStore) Put(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// RetrieveOrder returns the stored order.
func (s *StaticStore) RetrieveOrder(ctx context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, carrier.ErrOrderNotFound
	}
	return o, nil
}

var _ Store = (*StaticStore)(nil)

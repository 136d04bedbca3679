package deliveryoptions

import (
	"context"
	"sync"
	"time"

	"github.com/tournevent/myparcel/pkg/jsonmap"
)

// MockFetcher is an in-memory Fetcher for tests and local development.
type MockFetcher struct {
	SimulateLatency time.Duration

	// Deliveries and Pickups are returned when no hook is set.
	Deliveries []jsonmap.Map
	Pickups    []jsonmap.Map
	Err        error

	OnDeliveryOptions func(ctx context.Context, p Params) (Result, error)
	OnPickupLocations func(ctx context.Context, p Params) (Result, error)

	mu     sync.Mutex
	calls  int
	params []Params
}

// NewMockFetcher creates a mock returning the given lists.
func NewMockFetcher(deliveries, pickups []jsonmap.Map) *MockFetcher {
	return &MockFetcher{Deliveries: deliveries, Pickups: pickups}
}

func (m *MockFetcher) record(p Params) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.params = append(m.params, p)
}

// Calls returns the number of lookups made.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Params returns the parameters of every lookup.
func (m *MockFetcher) Params() []Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Params(nil), m.params...)
}

// DeliveryOptions returns Deliveries.
func (m *MockFetcher) DeliveryOptions(ctx context.Context, p Params) (Result, error) {
	m.record(p)
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.OnDeliveryOptions != nil {
		return m.OnDeliveryOptions(ctx, p)
	}
	if m.Err != nil {
		return Result{}, m.Err
	}
	return Result{Deliveries: m.Deliveries}, nil
}

// PickupLocations returns Pickups.
func (m *MockFetcher) PickupLocations(ctx context.Context, p Params) (Result, error) {
	m.record(p)
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.OnPickupLocations != nil {
		return m.OnPickupLocations(ctx, p)
	}
	if m.Err != nil {
		return Result{}, m.Err
	}
	return Result{PickupLocations: m.Pickups}, nil
}

var _ Fetcher = (*MockFetcher)(nil)

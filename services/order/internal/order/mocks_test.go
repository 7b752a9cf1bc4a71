package order

import (
	"context"
	"sync"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/google/uuid"
)

// MockOrderRepo is an in-memory OrderRepo
type MockOrderRepo struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]Order
	GetFunc func(ctx context.Context, id uuid.UUID) (*Order, error)
	Updates int
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{orders: make(map[uuid.UUID]Order)}
}

func (m *MockOrderRepo) Create(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = *o
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *MockOrderRepo) Update(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = *o
	m.Updates++
	return nil
}

// AddOrder seeds the repository
func (m *MockOrderRepo) AddOrder(o *Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = *o
}

type MockAddressResolver struct {
	Address *event.Address
	Err     error
	Calls   int
}

func (m *MockAddressResolver) DefaultAddress(ctx context.Context, customerID string) (*event.Address, error) {
	m.Calls++
	return m.Address, m.Err
}

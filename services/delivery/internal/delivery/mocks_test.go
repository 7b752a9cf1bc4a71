package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/google/uuid"
)

// MockDeliveryRepo enforces one delivery per order like the unique index.
type MockDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]Delivery
	CreateFunc func(ctx context.Context, d *Delivery) error
}

func NewMockDeliveryRepo() *MockDeliveryRepo {
	return &MockDeliveryRepo{deliveries: make(map[uuid.UUID]Delivery)}
}

func (m *MockDeliveryRepo) Create(ctx context.Context, d *Delivery) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.deliveries {
		if existing.OrderID == d.OrderID {
			return fmt.Errorf("%w: order %s", saga.ErrDuplicateResource, d.OrderID)
		}
	}
	m.deliveries[d.ID] = *d
	return nil
}

func (m *MockDeliveryRepo) Get(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *MockDeliveryRepo) FindByOrderID(ctx context.Context, orderID string) (*Delivery, error) {
	return m.find(func(d Delivery) bool { return d.OrderID == orderID })
}

func (m *MockDeliveryRepo) FindByJobID(ctx context.Context, jobID string) (*Delivery, error) {
	return m.find(func(d Delivery) bool { return d.CourierJobID == jobID })
}

func (m *MockDeliveryRepo) find(match func(Delivery) bool) (*Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.deliveries {
		if match(d) {
			cp := d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockDeliveryRepo) Update(ctx context.Context, d *Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[d.ID] = *d
	return nil
}

func (m *MockDeliveryRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deliveries)
}

// MockCourier is a test mock for Courier
type MockCourier struct {
	mu             sync.Mutex
	Calls          int
	RequestJobFunc func(ctx context.Context, req JobRequest) (*Job, error)
}

func (m *MockCourier) RequestJob(ctx context.Context, req JobRequest) (*Job, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.RequestJobFunc != nil {
		return m.RequestJobFunc(ctx, req)
	}
	return &Job{ID: "job-" + req.OrderID}, nil
}

type txKey struct{}

// serialTransactor runs units of work one at a time. Nested calls join the
// outer unit like a session transaction does.
type serialTransactor struct {
	mu sync.Mutex
}

func (t *serialTransactor) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

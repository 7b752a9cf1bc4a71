package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/google/uuid"
)

// MockPaymentRepo enforces one payment per order and per intent.
type MockPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]Payment
}

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{payments: make(map[uuid.UUID]Payment)}
}

func (m *MockPaymentRepo) Create(ctx context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.OrderID == p.OrderID || existing.IntentID == p.IntentID {
			return fmt.Errorf("%w: order %s", saga.ErrDuplicateResource, p.OrderID)
		}
	}
	m.payments[p.ID] = *p
	return nil
}

func (m *MockPaymentRepo) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MockPaymentRepo) FindByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	return m.find(func(p Payment) bool { return p.OrderID == orderID })
}

func (m *MockPaymentRepo) FindByIntentID(ctx context.Context, intentID string) (*Payment, error) {
	return m.find(func(p Payment) bool { return p.IntentID == intentID })
}

func (m *MockPaymentRepo) find(match func(Payment) bool) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if match(p) {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockPaymentRepo) Update(ctx context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = *p
	return nil
}

// MockProvider keeps intents in memory. Intents succeed on retrieve unless
// Status says otherwise.
type MockProvider struct {
	mu            sync.Mutex
	Status        string
	RetrieveCalls int
	CancelCalls   int
	CreateErr     error
}

func (m *MockProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return &Intent{ID: "pi_" + req.OrderID, Status: "requires_payment_method", ClientSecret: "secret_" + req.OrderID}, nil
}

func (m *MockProvider) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RetrieveCalls++
	status := m.Status
	if status == "" {
		status = IntentSucceeded
	}
	return &Intent{ID: intentID, Status: status}, nil
}

func (m *MockProvider) CancelIntent(ctx context.Context, intentID string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalls++
	return &Intent{ID: intentID, Status: IntentCanceled}, nil
}

type txKey struct{}

// serialTransactor runs units of work one at a time. Nested calls join the
// outer unit.
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

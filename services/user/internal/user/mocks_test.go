package user

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/google/uuid"
)

// MockAddressRepo rejects a second default per user like the partial
// unique index does.
type MockAddressRepo struct {
	mu        sync.Mutex
	addresses map[uuid.UUID]Address
}

func NewMockAddressRepo() *MockAddressRepo {
	return &MockAddressRepo{addresses: make(map[uuid.UUID]Address)}
}

func (m *MockAddressRepo) Create(ctx context.Context, a *Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDefault(a); err != nil {
		return err
	}
	m.addresses[a.ID] = *a
	return nil
}

func (m *MockAddressRepo) Get(ctx context.Context, id uuid.UUID) (*Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addresses[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MockAddressRepo) ListByUser(ctx context.Context, userID string) ([]*Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*Address
	for _, a := range m.addresses {
		if a.UserID == userID {
			cp := a
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (m *MockAddressRepo) FindDefault(ctx context.Context, userID string) (*Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.addresses {
		if a.UserID == userID && a.IsDefault {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockAddressRepo) ClearDefaults(ctx context.Context, userID string, keep uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.addresses {
		if a.UserID == userID && id != keep && a.IsDefault {
			a.IsDefault = false
			m.addresses[id] = a
		}
	}
	return nil
}

func (m *MockAddressRepo) Update(ctx context.Context, a *Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDefault(a); err != nil {
		return err
	}
	m.addresses[a.ID] = *a
	return nil
}

func (m *MockAddressRepo) checkDefault(a *Address) error {
	if !a.IsDefault {
		return nil
	}
	for id, other := range m.addresses {
		if id != a.ID && other.UserID == a.UserID && other.IsDefault {
			return fmt.Errorf("%w: default address for user %s", saga.ErrDuplicateResource, a.UserID)
		}
	}
	return nil
}

func (m *MockAddressRepo) Defaults(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.addresses {
		if a.UserID == userID && a.IsDefault {
			n++
		}
	}
	return n
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

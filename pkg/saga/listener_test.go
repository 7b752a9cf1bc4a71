package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/aquamarinepk/aqm/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]events.HandlerFunc
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string]events.HandlerFunc)
	}
	f.handlers[topic] = handler
	return nil
}

// lockingTransactor serializes units of work and undoes ledger writes on
// failure, like a store transaction would.
type lockingTransactor struct {
	mu sync.Mutex
}

func (t *lockingTransactor) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

func wireMessage(t *testing.T, id string) []byte {
	t.Helper()
	env, err := event.New(event.EventOrderReady, "order", event.OrderReady{OrderID: "o-1"})
	require.NoError(t, err)
	env.ID = id
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

func TestListenerHandle(t *testing.T) {
	tests := []struct {
		name        string
		effectErr   error
		wantErr     bool
		wantRecords int
	}{
		{name: "applies effect and records event", wantRecords: 1},
		{name: "settled duplicate is recorded", effectErr: ErrDuplicateResource, wantRecords: 1},
		{name: "settled transition is recorded", effectErr: fmt.Errorf("%w: x", ErrInvalidTransition), wantRecords: 1},
		{name: "transient failure is retried", effectErr: ErrDownstreamUnavailable, wantErr: true, wantRecords: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := NewMemoryLedger()
			calls := 0
			l := NewListener(ListenerConfig{
				RoutingKey: event.EventOrderReady,
				Ledger:     ledger,
				Effect: func(ctx context.Context, env *event.Envelope) error {
					calls++
					return tt.effectErr
				},
			})

			err := l.Handle(context.Background(), wireMessage(t, "evt-1"))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, calls)
			assert.Equal(t, tt.wantRecords, ledger.Len())
		})
	}
}

func TestListenerSkipsProcessedEvent(t *testing.T) {
	ledger := NewMemoryLedger()
	calls := 0
	l := NewListener(ListenerConfig{
		RoutingKey: event.EventOrderReady,
		Ledger:     ledger,
		Effect: func(ctx context.Context, env *event.Envelope) error {
			calls++
			return nil
		},
	})

	msg := wireMessage(t, "evt-1")
	require.NoError(t, l.Handle(context.Background(), msg))
	require.NoError(t, l.Handle(context.Background(), msg))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, ledger.Len())
}

func TestListenerEmptyIDBypassesDedup(t *testing.T) {
	ledger := NewMemoryLedger()
	calls := 0
	l := NewListener(ListenerConfig{
		RoutingKey: event.EventOrderReady,
		Ledger:     ledger,
		Effect: func(ctx context.Context, env *event.Envelope) error {
			calls++
			return nil
		},
	})

	msg := wireMessage(t, "")
	require.NoError(t, l.Handle(context.Background(), msg))
	require.NoError(t, l.Handle(context.Background(), msg))

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, ledger.Len())
}

func TestListenerAcksUndecodableMessage(t *testing.T) {
	called := false
	l := NewListener(ListenerConfig{
		RoutingKey: event.EventOrderReady,
		Ledger:     NewMemoryLedger(),
		Effect: func(ctx context.Context, env *event.Envelope) error {
			called = true
			return nil
		},
	})

	assert.NoError(t, l.Handle(context.Background(), []byte("not json")))
	assert.False(t, called)
}

func TestListenerConcurrentRedelivery(t *testing.T) {
	ledger := NewMemoryLedger()
	var applied int32
	created := map[string]bool{}
	l := NewListener(ListenerConfig{
		RoutingKey: event.EventOrderReady,
		Ledger:     ledger,
		Transactor: &lockingTransactor{},
		Effect: func(ctx context.Context, env *event.Envelope) error {
			var p event.OrderReady
			if err := env.Decode(&p); err != nil {
				return err
			}
			if created[p.OrderID] {
				return ErrDuplicateResource
			}
			created[p.OrderID] = true
			atomic.AddInt32(&applied, 1)
			return nil
		},
	})

	msg := wireMessage(t, "evt-race")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Handle(context.Background(), msg))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&applied))
	assert.Equal(t, 1, ledger.Len())
}

func TestListenerStartSubscribesRoutingKey(t *testing.T) {
	sub := &fakeSubscriber{}
	l := NewListener(ListenerConfig{
		RoutingKey: event.EventDeliveryStarted,
		Subscriber: sub,
		Ledger:     NewMemoryLedger(),
		Effect:     func(ctx context.Context, env *event.Envelope) error { return nil },
	})

	require.NoError(t, l.Start(context.Background()))
	assert.Contains(t, sub.handlers, event.EventDeliveryStarted)
}

type failingLedger struct{ MemoryLedger }

func (f *failingLedger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	return false, errors.New("ledger down")
}

func TestListenerLedgerFailureRedelivers(t *testing.T) {
	l := NewListener(ListenerConfig{
		RoutingKey: event.EventOrderReady,
		Ledger:     &failingLedger{},
		Effect:     func(ctx context.Context, env *event.Envelope) error { return nil },
	})

	assert.Error(t, l.Handle(context.Background(), wireMessage(t, "evt-1")))
}

func TestListenerProcessReportsSettledError(t *testing.T) {
	ledger := NewMemoryLedger()
	l := NewListener(ListenerConfig{
		RoutingKey: "payment.webhook",
		Ledger:     ledger,
		Effect: func(ctx context.Context, env *event.Envelope) error {
			return fmt.Errorf("%w: CANCELLED to SUCCEEDED", ErrInvalidTransition)
		},
	})

	env := &event.Envelope{ID: "wh-1", Type: "payment_intent.succeeded", Payload: []byte(`{}`)}
	err := l.Process(context.Background(), env)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, ledger.Len())

	assert.NoError(t, l.Process(context.Background(), env))
}

package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/appetiteclub/fulfillment/pkg/enums/orderstatus"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
)

func deliveryMessage(t *testing.T, id, routingKey, orderID string) []byte {
	t.Helper()
	env, err := event.New(routingKey, "delivery", event.DeliveryPickedUp{
		DeliveryEventMetadata: event.DeliveryEventMetadata{DeliveryID: "dlv-1", OrderID: orderID},
	})
	if err != nil {
		t.Fatal(err)
	}
	env.ID = id
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDeliveryListenersAdvanceOrder(t *testing.T) {
	repo := NewMockOrderRepo()
	svc := newTestService(repo, saga.NewMemoryOutbox(), nil)
	o := seedOrder(repo, orderstatus.Statuses.Ready.Code())
	ledger := saga.NewMemoryLedger()

	listeners := NewListeners(ListenerDeps{Ledger: ledger, Service: svc}, nil)
	if len(listeners) != 2 {
		t.Fatalf("got %d listeners, want 2", len(listeners))
	}
	pickedUp, delivered := listeners[0], listeners[1]
	ctx := context.Background()

	if err := pickedUp.Handle(ctx, deliveryMessage(t, "e1", event.EventDeliveryPickedUp, o.ID.String())); err != nil {
		t.Fatalf("picked_up: %v", err)
	}
	got, _ := repo.Get(ctx, o.ID)
	if got.Status != orderstatus.Statuses.InDelivery.Code() {
		t.Fatalf("status = %s, want IN_DELIVERY", got.Status)
	}

	if err := delivered.Handle(ctx, deliveryMessage(t, "e2", event.EventDeliveryDelivered, o.ID.String())); err != nil {
		t.Fatalf("delivered: %v", err)
	}
	got, _ = repo.Get(ctx, o.ID)
	if got.Status != orderstatus.Statuses.Delivered.Code() {
		t.Fatalf("status = %s, want DELIVERED", got.Status)
	}

	// A late picked_up is settled and leaves the order delivered.
	if err := pickedUp.Handle(ctx, deliveryMessage(t, "e3", event.EventDeliveryPickedUp, o.ID.String())); err != nil {
		t.Fatalf("late picked_up: %v", err)
	}
	got, _ = repo.Get(ctx, o.ID)
	if got.Status != orderstatus.Statuses.Delivered.Code() {
		t.Errorf("status = %s after late event", got.Status)
	}
	if ledger.Len() != 3 {
		t.Errorf("ledger has %d entries, want 3", ledger.Len())
	}
}

func TestDeliveryListenerRedeliveryIsNoop(t *testing.T) {
	repo := NewMockOrderRepo()
	svc := newTestService(repo, saga.NewMemoryOutbox(), nil)
	o := seedOrder(repo, orderstatus.Statuses.Ready.Code())
	listeners := NewListeners(ListenerDeps{Ledger: saga.NewMemoryLedger(), Service: svc}, nil)

	msg := deliveryMessage(t, "same", event.EventDeliveryPickedUp, o.ID.String())
	for i := 0; i < 3; i++ {
		if err := listeners[0].Handle(context.Background(), msg); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if repo.Updates != 1 {
		t.Errorf("order updated %d times, want 1", repo.Updates)
	}
}

package order

import (
	"context"
	"errors"

	"github.com/appetiteclub/fulfillment/pkg/enums/orderstatus"
	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"
)

type ListenerDeps struct {
	Subscriber events.Subscriber
	Ledger     saga.Ledger
	Transactor saga.Transactor
	Service    *Service
}

// NewListeners wires the delivery events that move an order forward.
func NewListeners(deps ListenerDeps, logger aqm.Logger) []*saga.Listener {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	log := logger.With("component", "OrderListeners")

	build := func(routingKey, status string) *saga.Listener {
		return saga.NewListener(saga.ListenerConfig{
			Name:       "order." + routingKey,
			RoutingKey: routingKey,
			Subscriber: deps.Subscriber,
			Ledger:     deps.Ledger,
			Transactor: deps.Transactor,
			Effect:     deliveryEffect(deps.Service, status, log),
			Logger:     logger,
		})
	}

	return []*saga.Listener{
		build(event.EventDeliveryPickedUp, orderstatus.Statuses.InDelivery.Code()),
		build(event.EventDeliveryDelivered, orderstatus.Statuses.Delivered.Code()),
	}
}

func deliveryEffect(svc *Service, status string, log aqm.Logger) saga.Effect {
	return func(ctx context.Context, env *event.Envelope) error {
		var meta event.DeliveryEventMetadata
		if err := env.Decode(&meta); err != nil {
			log.Error("cannot decode delivery event", "event_id", env.ID, "error", err)
			return nil
		}

		orderID, err := uuid.Parse(meta.OrderID)
		if err != nil {
			log.Error("delivery event with invalid order id", "event_id", env.ID, "order_id", meta.OrderID)
			return nil
		}

		_, err = svc.Advance(ctx, orderID, status)
		if errors.Is(err, ErrNotFound) {
			log.Info("delivery event for unknown order", "order_id", meta.OrderID)
			return nil
		}
		return err
	}
}

package delivery

import (
	"context"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

type ListenerDeps struct {
	Subscriber events.Subscriber
	Ledger     saga.Ledger
	Transactor saga.Transactor
	Service    *Service
}

// NewOrderReadyListener starts one delivery per ready order.
func NewOrderReadyListener(deps ListenerDeps, logger aqm.Logger) *saga.Listener {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	log := logger.With("component", "OrderReadyListener")
	return saga.NewListener(saga.ListenerConfig{
		Name:       "delivery.order_ready",
		RoutingKey: event.EventOrderReady,
		Subscriber: deps.Subscriber,
		Ledger:     deps.Ledger,
		Transactor: deps.Transactor,
		Logger:     logger,
		Effect: func(ctx context.Context, env *event.Envelope) error {
			var p event.OrderReady
			if err := env.Decode(&p); err != nil {
				log.Error("cannot decode order ready", "event_id", env.ID, "error", err)
				return nil
			}
			_, err := deps.Service.StartForOrder(ctx, p)
			return err
		},
	})
}

// NewCourierWebhookProcessor deduplicates courier callbacks on their event id.
// It is driven by the webhook handler, not by the bus.
func NewCourierWebhookProcessor(deps ListenerDeps, logger aqm.Logger) *saga.Listener {
	return saga.NewListener(saga.ListenerConfig{
		Name:       "delivery.courier_webhook",
		Ledger:     deps.Ledger,
		Transactor: deps.Transactor,
		Logger:     logger,
		Effect: func(ctx context.Context, env *event.Envelope) error {
			var evt CourierEvent
			if err := env.Decode(&evt); err != nil {
				return err
			}
			_, err := deps.Service.ApplyCourierEvent(ctx, evt)
			return err
		},
	})
}

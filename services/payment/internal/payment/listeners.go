package payment

import (
	"context"
	"errors"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
)

// NewProviderWebhookProcessor deduplicates provider callbacks on their event
// id. It is driven by the webhook handler, not by the bus.
func NewProviderWebhookProcessor(ledger saga.Ledger, tx saga.Transactor, service *Service, logger aqm.Logger) *saga.Listener {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	log := logger.With("component", "ProviderWebhook")
	return saga.NewListener(saga.ListenerConfig{
		Name:       "payment.provider_webhook",
		Ledger:     ledger,
		Transactor: tx,
		Logger:     logger,
		Effect: func(ctx context.Context, env *event.Envelope) error {
			var evt ProviderEvent
			if err := env.Decode(&evt); err != nil {
				return err
			}
			_, err := service.ApplyProviderEvent(ctx, evt)
			if errors.Is(err, ErrUnsupportedEvent) {
				log.Debug("ignoring provider event", "event_id", env.ID, "type", evt.Type)
				return nil
			}
			return err
		},
	})
}

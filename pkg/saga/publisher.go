package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

// MsgIDPublisher is implemented by transports that can deduplicate on the
// producer-assigned event ID (JetStream Nats-Msg-Id).
type MsgIDPublisher interface {
	PublishMsg(ctx context.Context, subject, msgID string, msg []byte) error
}

// Publisher emits envelopes onto the Event Channel. The routing key is used
// as the wire subject and must belong to the topic.
type Publisher struct {
	transport events.Publisher
	logger    aqm.Logger
}

func NewPublisher(transport events.Publisher, logger aqm.Logger) *Publisher {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Publisher{
		transport: transport,
		logger:    logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, topic, routingKey string, env *event.Envelope) error {
	if env == nil {
		return fmt.Errorf("%w: nil envelope for %s", ErrPublishFailure, routingKey)
	}
	if p.transport == nil {
		return fmt.Errorf("%w: no transport configured", ErrPublishFailure)
	}
	if !strings.HasPrefix(routingKey, topic+".") {
		return fmt.Errorf("%w: routing key %s does not belong to topic %s", ErrPublishFailure, routingKey, topic)
	}

	env.EnsureID()
	if env.Type == "" {
		env.Type = routingKey
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: cannot marshal %s: %w", ErrPublishFailure, routingKey, err)
	}

	if idp, ok := p.transport.(MsgIDPublisher); ok {
		err = idp.PublishMsg(ctx, routingKey, env.ID, data)
	} else {
		err = p.transport.Publish(ctx, routingKey, data)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailure, routingKey, err)
	}

	p.logger.Debug("event published", "routing_key", routingKey, "event_id", env.ID)
	return nil
}

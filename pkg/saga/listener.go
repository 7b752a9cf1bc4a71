package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

// Effect applies one event to the consuming service. It runs inside the
// listener's unit of work, before the event ID is recorded. Under a
// DetachedLedger it must settle a replayed event with ErrDuplicateResource or
// ErrInvalidTransition.
type Effect func(ctx context.Context, env *event.Envelope) error

var errDuplicateDelivery = errors.New("duplicate delivery")

type ListenerConfig struct {
	Name       string
	RoutingKey string
	Subscriber events.Subscriber
	Ledger     Ledger
	Transactor Transactor
	Effect     Effect
	Logger     aqm.Logger
}

// Listener consumes one routing key and applies its effect at most once per
// event ID.
type Listener struct {
	name       string
	routingKey string
	subscriber events.Subscriber
	ledger     Ledger
	tx         Transactor
	effect     Effect
	logger     aqm.Logger
}

func NewListener(cfg ListenerConfig) *Listener {
	logger := cfg.Logger
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	tx := cfg.Transactor
	if tx == nil {
		tx = NoopTransactor{}
	}
	name := cfg.Name
	if name == "" {
		name = cfg.RoutingKey
	}
	return &Listener{
		name:       name,
		routingKey: cfg.RoutingKey,
		subscriber: cfg.Subscriber,
		ledger:     cfg.Ledger,
		tx:         tx,
		effect:     cfg.Effect,
		logger:     logger,
	}
}

func (l *Listener) Start(ctx context.Context) error {
	if l.subscriber == nil {
		return fmt.Errorf("listener %s has no subscriber", l.name)
	}
	if err := l.subscriber.Subscribe(ctx, l.routingKey, l.Handle); err != nil {
		return fmt.Errorf("listener %s cannot subscribe to %s: %w", l.name, l.routingKey, err)
	}
	l.log().Info("listener started", "routing_key", l.routingKey)
	return nil
}

// Handle processes one wire message. A nil return acknowledges the message;
// an error asks the transport to redeliver it.
func (l *Listener) Handle(ctx context.Context, msg []byte) error {
	env, err := event.Parse(msg)
	if err != nil {
		l.log().Error("discarding undecodable event", "error", err)
		return nil
	}

	if err := l.Process(ctx, env); err != nil && !IsSettled(err) {
		return err
	}
	return nil
}

// Process applies env at most once. It returns nil for applied and
// already-processed events, the settled error for events recorded without
// change, and any other error when the unit of work was rolled back.
func (l *Listener) Process(ctx context.Context, env *event.Envelope) error {
	log := l.log().With("event_id", env.ID, "type", env.Type)

	if env.ID == "" {
		log.Info("event without id, deduplication skipped")
	} else {
		processed, err := l.ledger.IsProcessed(ctx, env.ID)
		if err != nil {
			return fmt.Errorf("cannot check ledger for %s: %w", env.ID, err)
		}
		if processed {
			log.Debug("event already processed")
			return nil
		}
	}

	detached := isDetached(l.ledger)

	var settled error
	err := l.tx.Exec(ctx, func(ctx context.Context) error {
		settled = nil
		if err := l.effect(ctx, env); err != nil {
			if !IsSettled(err) {
				return err
			}
			settled = err
			log.Info("event settled without change", "reason", err.Error())
		}

		if detached {
			return nil
		}
		if err := l.ledger.MarkProcessed(ctx, env.ID); err != nil {
			if errors.Is(err, ErrAlreadyProcessed) {
				return errDuplicateDelivery
			}
			return fmt.Errorf("cannot record event %s: %w", env.ID, err)
		}
		return nil
	})

	if errors.Is(err, errDuplicateDelivery) {
		log.Debug("concurrent delivery lost the race")
		return nil
	}
	if err != nil {
		log.Error("event handling failed", "error", err)
		return err
	}

	if detached {
		// The effect is committed. A redelivery after a failed mark replays it
		// and settles on the effect's own existence and transition checks.
		if err := l.ledger.MarkProcessed(ctx, env.ID); err != nil && !errors.Is(err, ErrAlreadyProcessed) {
			log.Error("cannot record committed event", "error", err)
			return fmt.Errorf("cannot record event %s: %w", env.ID, err)
		}
	}

	log.Debug("event processed")
	return settled
}

func (l *Listener) log() aqm.Logger {
	return l.logger.With("component", "Listener", "listener", l.name)
}

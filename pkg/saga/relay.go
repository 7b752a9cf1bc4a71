package saga

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/aquamarinepk/aqm"
)

const (
	defaultRelayInterval = time.Second
	defaultRelayBatch    = 100
)

// Relay moves committed outbox messages onto the Event Channel.
type Relay struct {
	outbox    Outbox
	publisher *Publisher
	interval  time.Duration
	batch     int
	logger    aqm.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type RelayConfig struct {
	Interval time.Duration
	Batch    int
}

func NewRelay(outbox Outbox, publisher *Publisher, cfg RelayConfig, logger aqm.Logger) *Relay {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultRelayInterval
	}
	if cfg.Batch <= 0 {
		cfg.Batch = defaultRelayBatch
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  cfg.Interval,
		batch:     cfg.Batch,
		logger:    logger.With("component", "OutboxRelay"),
	}
}

func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if _, err := r.Flush(runCtx); err != nil {
					r.logger.Info("outbox flush incomplete", "error", err)
				}
			}
		}
	}()

	r.logger.Info("outbox relay started", "interval", r.interval.String())
	return nil
}

func (r *Relay) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		r.wg.Wait()
	}
	return nil
}

// Flush publishes one batch of pending messages in sequence order. It stops
// at the first publish failure so later events never overtake earlier ones.
// Order across units of work holds only when the outbox assigns sequences in
// commit order, as both stores do.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	pending, err := r.outbox.Pending(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("cannot load pending outbox messages: %w", err)
	}

	sent := 0
	for _, msg := range pending {
		env, err := event.Parse(msg.Payload)
		if err != nil {
			r.logger.Error("parking corrupt outbox message", "id", msg.ID, "error", err)
			if markErr := r.outbox.MarkParked(ctx, msg.ID, err.Error()); markErr != nil {
				return sent, fmt.Errorf("cannot park outbox message %s: %w", msg.ID, markErr)
			}
			continue
		}

		if err := r.publisher.Publish(ctx, msg.Topic, msg.RoutingKey, env); err != nil {
			if markErr := r.outbox.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				r.logger.Error("cannot record outbox failure", "id", msg.ID, "error", markErr)
			}
			return sent, err
		}

		if err := r.outbox.MarkSent(ctx, msg.ID); err != nil {
			return sent, fmt.Errorf("cannot mark outbox message %s sent: %w", msg.ID, err)
		}
		sent++
	}

	return sent, nil
}

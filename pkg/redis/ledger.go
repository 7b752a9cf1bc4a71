package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/saga"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "processed:"

// Ledger keeps processed event IDs as Redis keys. SETNX commits on its own and
// cannot join a Mongo transaction, so the ledger is detached: listeners mark
// an event only after its unit of work commits.
type Ledger struct {
	client   goredis.UniversalClient
	consumer string
	ttl      time.Duration
}

// NewLedger builds a ledger scoped to consumer. A zero ttl keeps entries forever.
func NewLedger(client goredis.UniversalClient, consumer string, ttl time.Duration) *Ledger {
	return &Ledger{client: client, consumer: consumer, ttl: ttl}
}

func (l *Ledger) key(eventID string) string {
	return keyPrefix + l.consumer + ":" + eventID
}

func (l *Ledger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	n, err := l.client.Exists(ctx, l.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("cannot check processed event: %w", err)
	}
	return n > 0, nil
}

func (l *Ledger) MarkProcessed(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	ok, err := l.client.SetNX(ctx, l.key(eventID), time.Now().UTC().Format(time.RFC3339Nano), l.ttl).Result()
	if err != nil {
		return fmt.Errorf("cannot record processed event: %w", err)
	}
	if !ok {
		return saga.ErrAlreadyProcessed
	}
	return nil
}

func (l *Ledger) Detached() bool {
	return true
}

func (l *Ledger) Start(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cannot ping redis: %w", err)
	}
	return nil
}

func (l *Ledger) Stop(ctx context.Context) error {
	return l.client.Close()
}

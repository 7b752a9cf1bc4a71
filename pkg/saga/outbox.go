package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/event"
)

const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	// OutboxParked holds messages the relay can never publish. They keep
	// their last_error and stay out of the pending queue.
	OutboxParked = "parked"
)

// OutboxMessage is an outbound event stored in the same unit of work as the
// state change that produced it. Stores assign Sequence when the message is
// enqueued, in the order units of work commit.
type OutboxMessage struct {
	ID         string     `json:"id" bson:"_id"`
	Topic      string     `json:"topic" bson:"topic"`
	RoutingKey string     `json:"routing_key" bson:"routing_key"`
	Payload    []byte     `json:"payload" bson:"payload"`
	Status     string     `json:"status" bson:"status"`
	Attempts   int        `json:"attempts" bson:"attempts"`
	LastError  string     `json:"last_error,omitempty" bson:"last_error,omitempty"`
	Sequence   int64      `json:"seq" bson:"seq"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
}

type Outbox interface {
	Enqueue(ctx context.Context, msg *OutboxMessage) error
	// Pending returns unsent messages oldest first.
	Pending(ctx context.Context, limit int) ([]*OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
	MarkParked(ctx context.Context, id string, reason string) error
}

func NewOutboxMessage(topic, routingKey string, env *event.Envelope) (*OutboxMessage, error) {
	env.EnsureID()
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal outbox event %s: %w", routingKey, err)
	}
	now := time.Now().UTC()
	return &OutboxMessage{
		ID:         env.ID,
		Topic:      topic,
		RoutingKey: routingKey,
		Payload:    data,
		Status:     OutboxPending,
		CreatedAt:  now,
	}, nil
}

// Enqueue wraps payload in a new envelope and stores it in the outbox.
func Enqueue(ctx context.Context, ob Outbox, producer, topic, routingKey string, payload interface{}) error {
	env, err := event.New(routingKey, producer, payload)
	if err != nil {
		return err
	}
	msg, err := NewOutboxMessage(topic, routingKey, env)
	if err != nil {
		return err
	}
	if err := ob.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("cannot enqueue %s: %w", routingKey, err)
	}
	return nil
}

// MemoryOutbox keeps outbox messages in process memory.
type MemoryOutbox struct {
	mu       sync.Mutex
	messages map[string]*OutboxMessage
	next     int64
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{
		messages: make(map[string]*OutboxMessage),
	}
}

func (o *MemoryOutbox) Enqueue(ctx context.Context, msg *OutboxMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.messages[msg.ID]; ok {
		return fmt.Errorf("outbox message %s already enqueued", msg.ID)
	}
	o.next++
	msg.Sequence = o.next
	cp := *msg
	o.messages[msg.ID] = &cp
	return nil
}

func (o *MemoryOutbox) Pending(ctx context.Context, limit int) ([]*OutboxMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var result []*OutboxMessage
	for _, m := range o.messages {
		if m.Status == OutboxPending {
			cp := *m
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (o *MemoryOutbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.messages[id]
	if !ok {
		return fmt.Errorf("outbox message %s not found", id)
	}
	now := time.Now().UTC()
	m.Status = OutboxSent
	m.SentAt = &now
	return nil
}

func (o *MemoryOutbox) MarkFailed(ctx context.Context, id string, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.messages[id]
	if !ok {
		return fmt.Errorf("outbox message %s not found", id)
	}
	m.Attempts++
	m.LastError = reason
	return nil
}

func (o *MemoryOutbox) MarkParked(ctx context.Context, id string, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.messages[id]
	if !ok {
		return fmt.Errorf("outbox message %s not found", id)
	}
	m.Status = OutboxParked
	m.LastError = reason
	return nil
}

// Messages returns every stored message for the routing key, oldest first.
func (o *MemoryOutbox) Messages(routingKey string) []*OutboxMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	var result []*OutboxMessage
	for _, m := range o.messages {
		if routingKey == "" || m.RoutingKey == routingKey {
			cp := *m
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})
	return result
}

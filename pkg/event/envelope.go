package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps every message that crosses the bus. ID is assigned by the
// producer before the first publish attempt and reused on every retry.
type Envelope struct {
	ID         string          `json:"event_id"`
	Type       string          `json:"type"`
	Producer   string          `json:"producer,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an envelope with a fresh event ID for the given routing key.
func New(eventType, producer string, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal %s payload: %w", eventType, err)
	}

	return &Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Producer:   producer,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// EnsureID assigns an event ID when the producer left it empty.
func (e *Envelope) EnsureID() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
}

// Decode reads the payload into target.
func (e *Envelope) Decode(target interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has empty payload", e.ID)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return fmt.Errorf("cannot decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Parse unmarshals a wire message into an envelope.
func Parse(msg []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("invalid event envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("event envelope without type")
	}
	return &env, nil
}

// TopicOf returns the topic a routing key belongs to ("order.ready" -> "order").
func TopicOf(routingKey string) string {
	if i := strings.IndexByte(routingKey, '.'); i > 0 {
		return routingKey[:i]
	}
	return routingKey
}

package pkg

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	mu       sync.Mutex
	failures int
	attempts int
	written  []kafka.Message
}

func (w *stubWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts++
	if w.failures != 0 {
		if w.failures > 0 {
			w.failures--
		}
		return errors.New("broker down")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	return nil
}

func newTestKafkaSubscriber(w *stubWriter, maxDeliver int) *KafkaSubscriber {
	return &KafkaSubscriber{
		cfg: KafkaSubscriberConfig{
			Service:    "delivery",
			MaxDeliver: maxDeliver,
			RetryWait:  time.Millisecond,
		},
		dlq:    w,
		logger: aqm.NewNoopLogger(),
	}
}

func orderReadyMessage() kafka.Message {
	return kafka.Message{
		Topic: "order",
		Key:   []byte("order.ready"),
		Value: []byte(`{"event_id":"evt-1"}`),
		Headers: []kafka.Header{
			{Key: RoutingKeyHeader, Value: []byte("order.ready")},
		},
	}
}

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		name string
		msg  kafka.Message
		want string
	}{
		{"header", orderReadyMessage(), "order.ready"},
		{"headerWinsOverKey", kafka.Message{
			Key:     []byte("order.placed"),
			Headers: []kafka.Header{{Key: RoutingKeyHeader, Value: []byte("order.cancelled")}},
		}, "order.cancelled"},
		{"keyFallback", kafka.Message{Key: []byte("order.placed")}, "order.placed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, routingKey(tt.msg))
		})
	}
}

func TestKafkaDeliver(t *testing.T) {
	tests := []struct {
		name         string
		failHandler  int
		failDLQ      int
		wantCalls    int
		wantDLQ      int
		wantAttempts int
	}{
		{name: "handledFirstTime", failHandler: 0, wantCalls: 1},
		{name: "handledAfterRetry", failHandler: 2, wantCalls: 3},
		{name: "deadLetteredAtCeiling", failHandler: -1, wantCalls: 3, wantDLQ: 1, wantAttempts: 1},
		{name: "deadLetterRetriedUntilWritten", failHandler: -1, failDLQ: 2, wantCalls: 3, wantDLQ: 1, wantAttempts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &stubWriter{failures: tt.failDLQ}
			s := newTestKafkaSubscriber(w, 3)

			calls := 0
			handler := func(ctx context.Context, msg []byte) error {
				calls++
				if tt.failHandler < 0 || calls <= tt.failHandler {
					return errors.New("handler failed")
				}
				return nil
			}

			err := s.deliver(context.Background(), orderReadyMessage(), "order.ready", handler)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, calls)
			assert.Len(t, w.written, tt.wantDLQ)
			assert.Equal(t, tt.wantAttempts, w.attempts)
			if tt.wantDLQ > 0 {
				assert.Equal(t, "dlq.order", w.written[0].Topic)
				assert.Equal(t, []byte(`{"event_id":"evt-1"}`), w.written[0].Value)
			}
		})
	}
}

func TestKafkaDeliverStopsBeforeCommitWhenDeadLetterUnavailable(t *testing.T) {
	w := &stubWriter{failures: -1}
	s := newTestKafkaSubscriber(w, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.deliver(ctx, orderReadyMessage(), "order.ready", func(ctx context.Context, msg []byte) error {
		return errors.New("handler failed")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, w.written)
	assert.Greater(t, w.attempts, 1)
}

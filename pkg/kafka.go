package pkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/segmentio/kafka-go"
)

// RoutingKeyHeader carries the routing key; the Kafka topic is the exchange.
const RoutingKeyHeader = "routing-key"

const EventIDHeader = "event-id"

// KafkaPublisher writes every routing key of a topic to the same Kafka topic,
// keyed by routing key so one key stays on one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, subject string, msg []byte) error {
	return p.PublishMsg(ctx, subject, "", msg)
}

func (p *KafkaPublisher) PublishMsg(ctx context.Context, subject, msgID string, msg []byte) error {
	km := kafka.Message{
		Topic: event.TopicOf(subject),
		Key:   []byte(subject),
		Value: msg,
		Headers: []kafka.Header{
			{Key: RoutingKeyHeader, Value: []byte(subject)},
		},
	}
	if msgID != "" {
		km.Headers = append(km.Headers, kafka.Header{Key: EventIDHeader, Value: []byte(msgID)})
	}
	if err := p.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("failed to write to kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// messageWriter is the part of kafka.Writer the subscriber uses for dead letters.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaSubscriberConfig struct {
	Brokers    []string
	Service    string
	MaxDeliver int
	RetryWait  time.Duration
	Logger     aqm.Logger
}

// KafkaSubscriber runs one consumer group reader per subscription. Offsets
// are committed only after the handler succeeds or the message is
// dead-lettered.
type KafkaSubscriber struct {
	cfg    KafkaSubscriberConfig
	dlq    messageWriter
	logger aqm.Logger

	mu      sync.Mutex
	readers []*kafka.Reader
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewKafkaSubscriber(cfg KafkaSubscriberConfig) *KafkaSubscriber {
	if cfg.Logger == nil {
		cfg.Logger = aqm.NewNoopLogger()
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = defaultMaxDeliver
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	return &KafkaSubscriber{
		cfg:    cfg,
		dlq:    NewKafkaPublisher(cfg.Brokers).writer,
		logger: cfg.Logger.With("component", "KafkaSubscriber"),
	}
}

func (s *KafkaSubscriber) Subscribe(ctx context.Context, subject string, handler events.HandlerFunc) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.cfg.Brokers,
		GroupID:  s.cfg.Service + "." + subject,
		Topic:    event.TopicOf(subject),
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	s.mu.Lock()
	if s.cancel == nil {
		s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	}
	runCtx := s.runCtx
	s.readers = append(s.readers, reader)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consume(runCtx, reader, subject, handler)
	}()
	return nil
}

func (s *KafkaSubscriber) consume(ctx context.Context, reader *kafka.Reader, subject string, handler events.HandlerFunc) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			s.logger.Error("fetch failed", "subject", subject, "error", err)
			continue
		}

		if routingKey(msg) == subject {
			if err := s.deliver(ctx, msg, subject, handler); err != nil {
				// Uncommitted: the group resumes from this offset on restart.
				s.logger.Info("stopping before commit", "subject", subject, "offset", msg.Offset, "error", err)
				return
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			s.logger.Error("commit failed", "subject", subject, "offset", msg.Offset, "error", err)
		}
	}
}

// deliver runs handler up to MaxDeliver times, then writes the message to
// dlq.<topic>. It returns nil once the message is handled or dead-lettered
// and the context error when it stopped before either.
func (s *KafkaSubscriber) deliver(ctx context.Context, msg kafka.Message, subject string, handler events.HandlerFunc) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxDeliver; attempt++ {
		if err = handler(ctx, msg.Value); err == nil {
			return nil
		}
		s.logger.Info("handler failed, retrying", "subject", subject, "attempt", attempt, "error", err)
		if attempt == s.cfg.MaxDeliver {
			break
		}
		if waitErr := s.wait(ctx, attempt); waitErr != nil {
			return waitErr
		}
	}

	dlq := DeadLetterPrefix + "." + msg.Topic
	dead := kafka.Message{
		Topic:   dlq,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: msg.Headers,
	}
	for attempt := 1; ; attempt++ {
		pubErr := s.dlq.WriteMessages(ctx, dead)
		if pubErr == nil {
			break
		}
		s.logger.Error("cannot dead-letter message", "subject", subject, "attempt", attempt, "error", pubErr)
		if waitErr := s.wait(ctx, attempt); waitErr != nil {
			return waitErr
		}
	}
	s.logger.Error("message dead-lettered", "subject", subject, "topic", dlq, "error", err)
	return nil
}

func (s *KafkaSubscriber) wait(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.RetryWait * time.Duration(attempt)):
		return nil
	}
}

func routingKey(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == RoutingKeyHeader {
			return string(h.Value)
		}
	}
	return string(msg.Key)
}

func (s *KafkaSubscriber) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	readers := s.readers
	s.readers = nil
	s.mu.Unlock()

	s.wg.Wait()

	var errs []error
	for _, r := range readers {
		errs = append(errs, r.Close())
	}
	errs = append(errs, s.dlq.Close())
	return errors.Join(errs...)
}

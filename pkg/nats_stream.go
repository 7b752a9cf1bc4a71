package pkg

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	DeadLetterPrefix = "dlq"

	defaultMaxDeliver = 10
	defaultPrefetch   = 64
	defaultAckWait    = 30 * time.Second
	defaultDupWindow  = 2 * time.Hour
)

// NATSStream is a durable Event Channel on JetStream. Each topic maps to one
// stream and each (service, routing key) pair to one durable pull consumer.
type NATSStream struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	cfg     NATSStreamConfig
	logger  aqm.Logger
	streams map[string]jetstream.Stream

	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
}

// NATSStreamConfig configures a NATSStream instance.
type NATSStreamConfig struct {
	URL        string        // NATS server URL
	Service    string        // durable consumer prefix
	Topics     []string      // one stream per topic, subjects "<topic>.>"
	MaxAge     time.Duration // how long to retain events (0 = forever)
	MaxDeliver int           // attempts before dead-lettering
	Prefetch   int           // max unacknowledged messages per consumer
	AckWait    time.Duration
	Duplicates time.Duration // publish dedup window on Nats-Msg-Id
	Logger     aqm.Logger
}

// NewNATSStream connects and ensures the topic streams and the dead-letter
// stream exist.
func NewNATSStream(ctx context.Context, cfg NATSStreamConfig) (*NATSStream, error) {
	if cfg.Logger == nil {
		cfg.Logger = aqm.NewNoopLogger()
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = defaultMaxDeliver
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = defaultAckWait
	}
	if cfg.Duplicates <= 0 {
		cfg.Duplicates = defaultDupWindow
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	s := &NATSStream{
		conn:    conn,
		js:      js,
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "NATSStream"),
		streams: make(map[string]jetstream.Stream),
	}

	for _, topic := range append([]string{DeadLetterPrefix}, cfg.Topics...) {
		if _, err := s.ensureStream(ctx, topic); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return s, nil
}

func StreamName(topic string) string {
	return strings.ToUpper(topic) + "_EVENTS"
}

func (s *NATSStream) ensureStream(ctx context.Context, topic string) (jetstream.Stream, error) {
	if st, ok := s.streams[topic]; ok {
		return st, nil
	}

	streamConfig := jetstream.StreamConfig{
		Name:       StreamName(topic),
		Subjects:   []string{topic + ".>"},
		MaxAge:     s.cfg.MaxAge,
		Duplicates: s.cfg.Duplicates,
	}

	st, err := s.js.CreateOrUpdateStream(ctx, streamConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream %s: %w", streamConfig.Name, err)
	}
	s.streams[topic] = st
	return st, nil
}

func (s *NATSStream) Publish(ctx context.Context, subject string, msg []byte) error {
	if _, err := s.js.Publish(ctx, subject, msg); err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

// PublishMsg publishes with a message ID so the server drops retried copies
// inside the duplicates window.
func (s *NATSStream) PublishMsg(ctx context.Context, subject, msgID string, msg []byte) error {
	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}
	ack, err := s.js.Publish(ctx, subject, msg, opts...)
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	if ack.Duplicate {
		s.logger.Debug("duplicate publish ignored", "subject", subject, "event_id", msgID)
	}
	return nil
}

// ConsumerName derives a durable name; JetStream forbids dots in it.
func ConsumerName(service, subject string) string {
	r := strings.NewReplacer(".", "_", "*", "all", ">", "rest")
	return r.Replace(service + "_" + subject)
}

// Subscribe binds a durable consumer for subject. Handler errors are retried
// until MaxDeliver, then the message is copied to dlq.<subject> and dropped.
// The server never stops redelivering on its own; the ceiling is enforced in
// handle so a message whose dead-letter write fails is retried, not lost.
func (s *NATSStream) Subscribe(ctx context.Context, subject string, handler events.HandlerFunc) error {
	st, err := s.ensureStream(ctx, event.TopicOf(subject))
	if err != nil {
		return err
	}

	name := ConsumerName(s.cfg.Service, subject)
	consumerConfig := jetstream.ConsumerConfig{
		Name:          name,
		Durable:       name,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		FilterSubject: subject,
		MaxDeliver:    -1,
		AckWait:       s.cfg.AckWait,
		MaxAckPending: s.cfg.Prefetch,
	}

	consumer, err := st.CreateOrUpdateConsumer(ctx, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer %s: %w", name, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		s.handle(ctx, msg, handler)
	}, jetstream.PullMaxMessages(s.cfg.Prefetch))
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", subject, err)
	}

	s.mu.Lock()
	s.consumes = append(s.consumes, cc)
	s.mu.Unlock()
	return nil
}

func (s *NATSStream) handle(ctx context.Context, msg jetstream.Msg, handler events.HandlerFunc) {
	err := handler(ctx, msg.Data())
	if err == nil {
		_ = msg.Ack()
		return
	}

	md, mdErr := msg.Metadata()
	if mdErr != nil {
		s.logger.Error("cannot read message metadata, will redeliver", "subject", msg.Subject(), "error", mdErr)
		_ = msg.Nak()
		return
	}

	if md.NumDelivered < uint64(s.cfg.MaxDeliver) {
		s.logger.Info("handler failed, will redeliver", "subject", msg.Subject(), "attempt", md.NumDelivered, "error", err)
		_ = msg.Nak()
		return
	}

	dlq := DeadLetterPrefix + "." + msg.Subject()
	dlqID := fmt.Sprintf("%s-%d", md.Stream, md.Sequence.Stream)
	if _, pubErr := s.js.Publish(ctx, dlq, msg.Data(), jetstream.WithMsgID(dlqID)); pubErr != nil {
		s.logger.Error("cannot dead-letter message, will redeliver", "subject", msg.Subject(), "error", pubErr)
		_ = msg.NakWithDelay(s.cfg.AckWait)
		return
	}
	s.logger.Error("message dead-lettered", "subject", msg.Subject(), "attempts", md.NumDelivered, "error", err)
	_ = msg.Term()
}

// Close stops every consumer and closes the NATS connection.
func (s *NATSStream) Close() error {
	s.mu.Lock()
	for _, cc := range s.consumes {
		cc.Stop()
	}
	s.consumes = nil
	s.mu.Unlock()
	s.conn.Close()
	return nil
}

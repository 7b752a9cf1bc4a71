package pkg

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/fulfillment/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

const (
	BusStream = "stream"
	BusNATS   = "nats"
	BusKafka  = "kafka"
)

// Bus is the Event Channel selected by bus.kind.
type Bus struct {
	Kind       string
	Publisher  events.Publisher
	Subscriber events.Subscriber

	closers []func() error
}

func NewBus(ctx context.Context, config *aqm.Config, service string, logger aqm.Logger) (*Bus, error) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	kind := StringOr(config, "bus.kind", BusStream)
	natsURL := StringOr(config, "nats.url", "nats://localhost:4222")
	maxDeliver := IntOr(config, "bus.max.deliver", defaultMaxDeliver)

	switch kind {
	case BusStream:
		stream, err := NewNATSStream(ctx, NATSStreamConfig{
			URL:        natsURL,
			Service:    service,
			Topics:     event.Topics,
			MaxDeliver: maxDeliver,
			Prefetch:   IntOr(config, "bus.prefetch", defaultPrefetch),
			AckWait:    DurationOr(config, "bus.ack.wait", defaultAckWait),
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return &Bus{Kind: kind, Publisher: stream, Subscriber: stream, closers: []func() error{stream.Close}}, nil

	case BusNATS:
		pub, err := NewNATSPublisher(natsURL)
		if err != nil {
			return nil, err
		}
		sub, err := NewNATSSubscriber(natsURL, service, logger)
		if err != nil {
			_ = pub.Close()
			return nil, err
		}
		logger.Info("core NATS bus selected, delivery is at most once")
		return &Bus{Kind: kind, Publisher: pub, Subscriber: sub, closers: []func() error{sub.Close, pub.Close}}, nil

	case BusKafka:
		brokers := ListOr(config, "bus.kafka.brokers", []string{"localhost:9092"})
		pub := NewKafkaPublisher(brokers)
		sub := NewKafkaSubscriber(KafkaSubscriberConfig{
			Brokers:    brokers,
			Service:    service,
			MaxDeliver: maxDeliver,
			Logger:     logger,
		})
		return &Bus{Kind: kind, Publisher: pub, Subscriber: sub, closers: []func() error{sub.Close, pub.Close}}, nil
	}

	return nil, fmt.Errorf("unknown bus kind %q", kind)
}

func (b *Bus) Stop(ctx context.Context) error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

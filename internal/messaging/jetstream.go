package messaging

import (
	"context"
	"fmt"
	"net"
	"time"

	"easemyday/internal/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/jetstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"
	natsJs "github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

type JetStreamPublisher struct {
	TopicName string
	publisher *jetstream.Publisher
}

func NewJetStreamPublisher(config *models.JetStreamEventsConfig, topicName string) IPublisher {
	nc, err := nats.Connect(net.JoinHostPort(config.Host, config.Port))
	if err != nil {
		zap.L().Fatal("Failed to connect to NATS", zap.Error(err))
	}

	publisher, err := jetstream.NewPublisher(jetstream.PublisherConfig{
		Conn: nc,
	})
	if err != nil {
		zap.L().Fatal("Failed to create JetStream publisher", zap.Error(err))
	}

	return &JetStreamPublisher{TopicName: topicName, publisher: publisher}
}

func (p *JetStreamPublisher) Publish(messages ...*message.Message) error {
	return p.publisher.Publish(p.TopicName, messages...)
}

func (p *JetStreamPublisher) Close() error {
	return p.publisher.Close()
}

type JetStreamSubscriber struct {
	TopicName  string
	subscriber *jetstream.Subscriber
}

// NewJetStreamSubscriber creates a work-queue consumer shared by every instance.
// Fan-out topics are served by a plain NATS subscription on the stream subject instead,
// since each instance must see every message.
func NewJetStreamSubscriber(
	config *models.JetStreamEventsConfig,
	topicName string,
	opts SubscriberOptions,
) ISubscriber {
	nc, err := nats.Connect(net.JoinHostPort(config.Host, config.Port))
	if err != nil {
		zap.L().Fatal("Failed to connect to NATS", zap.Error(err))
	}

	if opts.FanOut {
		return &NATSFanOutSubscriber{TopicName: topicName, conn: nc}
	}

	js, err := natsJs.New(nc)
	if err != nil {
		zap.L().Fatal("Failed to create JetStream context", zap.Error(err))
	}

	stream, err := js.CreateStream(context.Background(), natsJs.StreamConfig{
		Name:      topicName,
		Subjects:  []string{topicName},
		Retention: natsJs.WorkQueuePolicy,
	})
	if err != nil {
		zap.L().Fatal("Failed to create stream",
			zap.String("stream_name", topicName),
			zap.String("subject", topicName),
			zap.Error(err))
	}

	consumerName := fmt.Sprintf("watermill__%s", topicName)
	_, err = stream.CreateOrUpdateConsumer(context.Background(), natsJs.ConsumerConfig{
		Name:      consumerName,
		AckPolicy: natsJs.AckExplicitPolicy,
	})
	if err != nil {
		zap.L().Fatal("Failed to create consumer",
			zap.String("consumer_name", consumerName),
			zap.Error(err))
	}

	var namer jetstream.ConsumerConfigurator
	subscriber, err := jetstream.NewSubscriber(jetstream.SubscriberConfig{
		Conn:                nc,
		AckWaitTimeout:      5 * time.Second,
		ResourceInitializer: jetstream.ExistingConsumer(namer, ""),
		Logger:              watermill.NopLogger{},
	})
	if err != nil {
		zap.L().Fatal("Failed to create JetStream subscriber", zap.Error(err))
	}

	return &JetStreamSubscriber{TopicName: topicName, subscriber: subscriber}
}

func (s *JetStreamSubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	sub, err := s.subscriber.Subscribe(ctx, s.TopicName)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", s.TopicName, err)
	}
	return sub, nil
}

func (s *JetStreamSubscriber) Close() error {
	return s.subscriber.Close()
}

type NATSFanOutSubscriber struct {
	TopicName string
	conn      *nats.Conn
}

func (s *NATSFanOutSubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	raw := make(chan *nats.Msg, 64)
	sub, err := s.conn.ChanSubscribe(s.TopicName, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to subject %s: %w", s.TopicName, err)
	}

	out := make(chan *message.Message)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()

		for {
			select {
			case <-ctx.Done():
				return
			case m := <-raw:
				id := m.Header.Get(watermillUUIDHeader)
				if id == "" {
					id = watermill.NewUUID()
				}
				msg := message.NewMessage(id, m.Data)
				msg.SetContext(ctx)

				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}

				select {
				case <-msg.Acked():
				case <-msg.Nacked():
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *NATSFanOutSubscriber) Close() error {
	s.conn.Close()
	return nil
}

const watermillUUIDHeader = "_watermill_message_uuid"

package messaging

import (
	"context"
	"fmt"

	"easemyday/internal/models"

	"github.com/ThreeDotsLabs/watermill-googlecloud/pkg/googlecloud"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

type GCPPublisher struct {
	TopicName string
	publisher *googlecloud.Publisher
}

func NewGCPPublisher(config *models.PubSubConfiguration, topicName string) IPublisher {
	publisher, err := googlecloud.NewPublisher(googlecloud.PublisherConfig{
		ProjectID: config.ProjectID,
	}, nil)
	if err != nil {
		zap.L().Fatal("Failed to create PUB/SUB publisher", zap.Error(err))
	}

	return &GCPPublisher{TopicName: topicName, publisher: publisher}
}

func (p *GCPPublisher) Publish(messages ...*message.Message) error {
	return p.publisher.Publish(p.TopicName, messages...)
}

func (p *GCPPublisher) Close() error {
	return p.publisher.Close()
}

type GCPSubscriber struct {
	TopicName  string
	subscriber *googlecloud.Subscriber
}

// NewGCPSubscriber binds to the topic's shared subscription. A fan-out subscriber gets a
// subscription of its own, named after the instance, which is created on first use.
func NewGCPSubscriber(
	config *models.PubSubConfiguration,
	topicName string,
	opts SubscriberOptions,
) ISubscriber {
	suffix := config.SubscriptionSuffix
	if opts.FanOut {
		suffix = fmt.Sprintf("%s-%s", config.SubscriptionSuffix, opts.InstanceID)
	}

	subscriber, err := googlecloud.NewSubscriber(
		googlecloud.SubscriberConfig{
			ProjectID: config.ProjectID,
			GenerateSubscriptionName: func(topic string) string {
				return topic + suffix
			},
			DoNotCreateSubscriptionIfMissing: !opts.FanOut,
		},
		nil,
	)
	if err != nil {
		zap.L().Fatal("Failed to create PUB/SUB subscriber", zap.Error(err))
	}

	return &GCPSubscriber{TopicName: topicName, subscriber: subscriber}
}

func (s *GCPSubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	sub, err := s.subscriber.Subscribe(ctx, s.TopicName)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", s.TopicName, err)
	}
	return sub, nil
}

func (s *GCPSubscriber) Close() error {
	return s.subscriber.Close()
}

package messaging

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"
)

type AWSPublisher struct {
	TopicName string
	publisher *sqs.Publisher
}

func NewAWSPublisher(queueName string) IPublisher {
	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background())
	if err != nil {
		zap.L().Fatal("Unable to load SDK config.", zap.Error(err))
	}

	publisher, err := sqs.NewPublisher(sqs.PublisherConfig{
		AWSConfig:                   awsCfg,
		DoNotCreateQueueIfNotExists: true,
		Marshaler:                   sqs.DefaultMarshalerUnmarshaler{},
	}, watermill.NopLogger{})
	if err != nil {
		zap.L().Fatal("Unable to create publisher", zap.Error(err))
	}

	return &AWSPublisher{TopicName: queueName, publisher: publisher}
}

func (p *AWSPublisher) Publish(messages ...*message.Message) error {
	return p.publisher.Publish(p.TopicName, messages...)
}

func (p *AWSPublisher) Close() error {
	return p.publisher.Close()
}

type AWSSubscriber struct {
	TopicName  string
	subscriber *sqs.Subscriber
}

// NewAWSSubscriber consumes an SQS queue. SQS delivers each message to a single consumer,
// so a fan-out topic needs one queue per instance, subscribed to an SNS topic upstream.
func NewAWSSubscriber(sqsName string, opts SubscriberOptions) ISubscriber {
	if opts.FanOut {
		sqsName = fmt.Sprintf("%s-%s", sqsName, opts.InstanceID)
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background())
	if err != nil {
		zap.L().Fatal("Unable to load SDK config.", zap.Error(err))
	}

	subscriber, err := sqs.NewSubscriber(sqs.SubscriberConfig{
		AWSConfig:                   awsCfg,
		DoNotCreateQueueIfNotExists: true,
	}, watermill.NopLogger{})
	if err != nil {
		zap.L().Fatal("Failed to create SQS subscriber", zap.Error(err))
	}

	return &AWSSubscriber{TopicName: sqsName, subscriber: subscriber}
}

func (s *AWSSubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	sub, err := s.subscriber.Subscribe(ctx, s.TopicName)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to queue %s: %w", s.TopicName, err)
	}
	return sub, nil
}

func (s *AWSSubscriber) Close() error {
	return s.subscriber.Close()
}

package messaging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisher interface {
	Publish(messages ...*message.Message) error
	Close() error
}

// ISubscriber delivers messages of one topic until ctx is cancelled. Every
// received message must be acked or nacked by the consumer.
type ISubscriber interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
	Close() error
}

// SubscriberOptions tunes delivery semantics. A fan-out subscriber receives every
// message published on the topic, instead of competing with the other instances.
type SubscriberOptions struct {
	FanOut     bool
	InstanceID string
}

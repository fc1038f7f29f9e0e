package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"easemyday/internal/messaging"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// EventFeed is the StateFeed backed by the identity_state topic.
type EventFeed struct {
	publisher  messaging.IPublisher
	subscriber messaging.ISubscriber
}

func NewEventFeed(publisher messaging.IPublisher, subscriber messaging.ISubscriber) *EventFeed {
	return &EventFeed{publisher: publisher, subscriber: subscriber}
}

func (f *EventFeed) Publish(change StateChange) error {
	if change.At.IsZero() {
		change.At = time.Now()
	}

	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal state change: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(change.Kind))

	if err = f.publisher.Publish(msg); err != nil {
		return fmt.Errorf("failed to publish state change: %w", err)
	}
	return nil
}

func (f *EventFeed) Subscribe(ctx context.Context) (<-chan StateChange, error) {
	messages, err := f.subscriber.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan StateChange)
	go func() {
		defer close(out)
		for msg := range messages {
			var change StateChange
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				zap.L().Error("Dropping malformed state change", zap.String("uuid", msg.UUID), zap.Error(err))
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// NopFeed is used when nothing should be pushed, such as with a provider that has no push channel.
type NopFeed struct{}

func (NopFeed) Publish(StateChange) error { return nil }

func (NopFeed) Subscribe(ctx context.Context) (<-chan StateChange, error) {
	out := make(chan StateChange)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

var (
	_ StateFeed = (*EventFeed)(nil)
	_ StateFeed = NopFeed{}
)

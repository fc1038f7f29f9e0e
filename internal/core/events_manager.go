package core

import (
	"easemyday/internal/configuration"
	"easemyday/internal/messaging"
	"easemyday/internal/models"

	"go.uber.org/zap"
)

// fanOutTopics must reach every instance, since each one holds its own visitors.
var fanOutTopics = map[string]bool{
	configuration.EventsIdentityState: true,
}

type EventsManager struct {
	publishers  map[string]messaging.IPublisher
	subscribers map[string]messaging.ISubscriber
	config      models.EventsConfiguration
	instanceID  string
}

func NewEventsManager(config models.EventsConfiguration, instanceID string) *EventsManager {
	manager := &EventsManager{
		publishers:  make(map[string]messaging.IPublisher),
		subscribers: make(map[string]messaging.ISubscriber),
		config:      config,
		instanceID:  instanceID,
	}

	manager.initializePublishers()
	manager.initializeSubscribers()

	return manager
}

func (em *EventsManager) subscriberOptions(topicKey string) messaging.SubscriberOptions {
	return messaging.SubscriberOptions{
		FanOut:     fanOutTopics[topicKey],
		InstanceID: em.instanceID,
	}
}

func (em *EventsManager) initializePublishers() {
	for topicKey, topicConfig := range em.config.Queues {
		var publisher messaging.IPublisher

		switch em.config.Type {
		case configuration.ProviderJetstream:
			publisher = messaging.NewJetStreamPublisher(em.config.Jetstream, topicConfig.Name)
		case configuration.ProviderGCP:
			publisher = messaging.NewGCPPublisher(em.config.PubSub, topicConfig.Name)
		case configuration.ProviderAWS:
			publisher = messaging.NewAWSPublisher(topicConfig.Name)
		case configuration.ProviderMemory:
			// The in-process channel must be shared by both ends of the topic.
			ch := messaging.NewMemoryChannel()
			publisher = messaging.NewMemoryPublisher(ch, topicConfig.Name)
			em.subscribers[topicKey] = messaging.NewMemorySubscriber(ch, topicConfig.Name)
		}

		em.publishers[topicKey] = publisher

		zap.L().Info("Initialized publisher",
			zap.String("topic_key", topicKey),
			zap.String("topic_name", topicConfig.Name),
			zap.String("provider", em.config.Type))
	}
}

func (em *EventsManager) initializeSubscribers() {
	for topicKey, topicConfig := range em.config.Queues {
		var subscriber messaging.ISubscriber
		opts := em.subscriberOptions(topicKey)

		switch em.config.Type {
		case configuration.ProviderJetstream:
			subscriber = messaging.NewJetStreamSubscriber(em.config.Jetstream, topicConfig.Name, opts)
		case configuration.ProviderGCP:
			subscriber = messaging.NewGCPSubscriber(em.config.PubSub, topicConfig.Name, opts)
		case configuration.ProviderAWS:
			subscriber = messaging.NewAWSSubscriber(topicConfig.Name, opts)
		case configuration.ProviderMemory:
			continue
		}

		if subscriber != nil {
			em.subscribers[topicKey] = subscriber
			zap.L().Info("Initialized subscriber",
				zap.String("topic_key", topicKey),
				zap.String("topic_name", topicConfig.Name),
				zap.Bool("fan_out", opts.FanOut),
				zap.String("provider", em.config.Type))
		}
	}
}

func (em *EventsManager) GetPublisher(topicKey string) messaging.IPublisher {
	publisher, exists := em.publishers[topicKey]
	if !exists {
		zap.L().Warn("Publisher not found", zap.String("topic_key", topicKey))
		return nil
	}
	return publisher
}

func (em *EventsManager) GetSubscriber(topicKey string) messaging.ISubscriber {
	subscriber, exists := em.subscribers[topicKey]
	if !exists {
		zap.L().Warn("Subscriber not found", zap.String("topic_key", topicKey))
		return nil
	}
	return subscriber
}

func (em *EventsManager) Close() {
	for topicKey, publisher := range em.publishers {
		if err := publisher.Close(); err != nil {
			zap.L().Error("Failed to close publisher",
				zap.String("topic_key", topicKey),
				zap.Error(err))
		}
	}

	for topicKey, subscriber := range em.subscribers {
		if err := subscriber.Close(); err != nil {
			zap.L().Error("Failed to close subscriber",
				zap.String("topic_key", topicKey),
				zap.Error(err))
		}
	}
}

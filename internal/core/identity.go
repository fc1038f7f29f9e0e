package core

import (
	"easemyday/internal/cache"
	"easemyday/internal/configuration"
	"easemyday/internal/identity"
	"easemyday/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewIdentityProvider builds the configured provider and the feed its state
// changes are pushed on. The hosted provider has no push channel.
func NewIdentityProvider(
	config models.Configuration,
	db *gorm.DB,
	c cache.ICache,
	eventsManager *EventsManager,
) (identity.Provider, identity.StateFeed) {
	switch config.Identity.Type {
	case configuration.IdentityFirebase:
		zap.L().Info("Using the hosted identity provider")
		return identity.NewFirebaseProvider(*config.Identity.Firebase, config.App.WebURL), identity.NopFeed{}

	default:
		feed := identity.NewEventFeed(
			eventsManager.GetPublisher(configuration.EventsIdentityState),
			eventsManager.GetSubscriber(configuration.EventsIdentityState),
		)
		provider := identity.NewLocalProvider(
			db,
			c,
			eventsManager.GetPublisher(configuration.EventsNotifications),
			feed,
			identity.NewPasswordPolicy(config.App.Password),
			*config.Identity.Local,
			config.App.WebURL,
		)
		zap.L().Info("Using the local identity provider")
		return provider, feed
	}
}

package core

import (
	"easemyday/internal/activity"
	"easemyday/internal/cache"
	"easemyday/internal/models"
	"easemyday/internal/notifier"

	"go.uber.org/zap"
)

func NewNotifier(config models.NotifierConfiguration) notifier.INotifier {
	switch config.Type {
	case "smtp":
		return notifier.NewSMTPNotifier(*config.SMTP)
	case "filesystem":
		return notifier.NewFilesystemNotifier(*config.Filesystem)
	default:
		return nil
	}
}

func NewActivityLogger(config models.ActivityConfiguration) activity.IActivityLogger {
	journal, err := activity.OpenJournal(config.Filesystem.Directory)
	if err != nil {
		zap.L().Fatal("Failed to open the activity journal", zap.Error(err))
	}
	return journal
}

// NewCache connects to the configured cache. The memory cache only suits a
// single instance, since locks and pending slots are not shared.
func NewCache(config models.CacheConfiguration) cache.ICache {
	var (
		c   cache.ICache
		err error
	)

	switch config.Type {
	case "redis":
		c, err = cache.NewRedisCache(*config.Redis)
	case "valkey":
		c, err = cache.NewValkeyCache(*config.Valkey)
	case "memory":
		zap.L().Warn("Using the in-memory cache, state is not shared between instances")
		c = cache.NewMemoryCache()
	}

	if err != nil {
		zap.L().Fatal("Failed to connect to cache", zap.String("type", config.Type), zap.Error(err))
	}
	return c
}

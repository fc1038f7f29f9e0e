package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"easemyday/internal/configuration"
	"easemyday/internal/core"
	"easemyday/internal/database"
	"easemyday/internal/identity"
	"easemyday/internal/metrics"
	"easemyday/internal/session"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))

	config := configuration.Read()
	core.NewLogger(config.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile := configuration.GetProfile(config.App.Profile)

	shutdownTracing, err := core.NewTracerProvider(ctx, config.Tracing)
	if err != nil {
		zap.L().Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()
	core.StartProfiler(config.Profiling)

	db := database.InitDB(config.Database)
	cache := core.NewCache(config.Cache)
	defer func() { _ = cache.Close() }()
	notify := core.NewNotifier(config.Notifier)
	activityLogger := core.NewActivityLogger(config.Activity)
	defer func() { _ = activityLogger.Close() }()
	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	appIdentity := uuid.New().String()
	go cache.StartIdentityTicker(appIdentity)

	var eventsManager *core.EventsManager
	if profile.NeedsEvents() {
		eventsManager = core.NewEventsManager(config.Events, appIdentity)
		defer eventsManager.Close()
	}

	var sessions *session.Manager
	if profile.HTTPServer {
		provider, feed := core.NewIdentityProvider(config, db, cache, eventsManager)
		sessions = session.NewManager(ctx, session.Options{
			Provider:  provider,
			Store:     session.NewCacheCredentialStore(cache, time.Duration(config.App.Session.TTL)*time.Hour),
			Policy:    identity.NewPasswordPolicy(config.App.Password),
			ActionURL: config.App.ActionURL(),
			Metrics:   appMetrics,
		})
		defer sessions.Close()

		go func() {
			if err := sessions.Run(ctx, feed); err != nil {
				zap.L().Error("Identity state feed stopped", zap.Error(err))
			}
		}()
	}

	if profile.Workers.AnyEnabled() {
		core.StartWorkers(ctx, profile, eventsManager, db, sessions, notify, config, cache, appIdentity)
	}

	if profile.HTTPServer {
		providers := configuration.LoadProviders(ctx, config.App.APIURL, config.Auth.Providers)
		router := core.NewRouter(config, db, cache, sessions, providers, activityLogger, appMetrics)
		core.StartHTTPServer(ctx, config, router)
	} else if profile.Workers.AnyEnabled() {
		zap.L().Info("Running in worker-only mode")
		<-ctx.Done()
	}

	zap.L().Info("Shutting down")
}

package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"easemyday/internal/actionlink"
	"easemyday/internal/activity"
	c "easemyday/internal/cache"
	"easemyday/internal/configuration"
	"easemyday/internal/events"
	"easemyday/internal/gate"
	"easemyday/internal/identity"
	"easemyday/internal/metrics"
	m "easemyday/internal/middlewares"
	"easemyday/internal/models"
	"easemyday/internal/notifier"
	"easemyday/internal/services"
	"easemyday/internal/session"
	"easemyday/internal/workers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	requestTimeout  = 5 * time.Second
	maxBodySize     = 1 << 20
	shutdownTimeout = 10 * time.Second
)

func StartWorkers(
	ctx context.Context,
	profile models.Profile,
	eventsManager *EventsManager,
	db *gorm.DB,
	sessions *session.Manager,
	notify notifier.INotifier,
	config models.Configuration,
	cache c.ICache,
	appIdentity string,
) {
	startWorker(ctx, profile.Workers.Notifications, "notifications", cache, appIdentity, func(ctx context.Context) {
		subscriber := eventsManager.GetSubscriber(configuration.EventsNotifications)
		if subscriber == nil {
			return
		}
		messages, err := subscriber.Subscribe(ctx)
		if err != nil {
			zap.L().Error("Failed to subscribe to notifications", zap.Error(err))
			return
		}
		events.HandleEvents(&events.EventParams{Notifier: notify}, messages)
	})

	startWorker(ctx, profile.Workers.ActionCodeCleanup, "action_code_cleanup", cache, appIdentity, func(ctx context.Context) {
		worker := &workers.ActionCodeCleanupWorker{
			DB:          db,
			RunInterval: configuration.ActionCodeCleanupInterval * time.Second,
		}
		worker.Start(ctx)
	})

	if sessions != nil {
		startWorker(ctx, profile.Workers.VisitorSweeper, "visitor_sweeper", cache, appIdentity, func(ctx context.Context) {
			worker := &workers.VisitorSweeper{
				Sessions:    sessions,
				IdleTimeout: time.Duration(config.App.Session.IdleTimeout) * time.Minute,
				RunInterval: configuration.VisitorSweepInterval * time.Second,
			}
			worker.Start(ctx)
		})
	}
}

func startWorker(
	ctx context.Context,
	mode models.WorkerMode,
	workerName string,
	cache c.ICache,
	appIdentity string,
	runWorker func(context.Context),
) {
	if mode == models.WorkerModeDisabled {
		return
	}

	if mode == models.WorkerModeSingleton {
		go startSingletonWorker(ctx, cache, appIdentity, workerName, runWorker)
	} else {
		go runWorker(ctx)
		zap.L().Info("Started worker", zap.String("worker", workerName))
	}
}

// startSingletonWorker runs the worker only while this instance holds its lock.
func startSingletonWorker(
	ctx context.Context,
	cache c.ICache,
	instanceID string,
	workerName string,
	runWorker func(context.Context),
) {
	lockKey := fmt.Sprintf(configuration.CacheAppWorkerLockKey, workerName)
	ticker := time.NewTicker(time.Duration(configuration.CacheAppWorkerLockRefresh) * time.Second)
	defer ticker.Stop()

	var workerStarted bool
	var cancelWorker context.CancelFunc
	defer func() {
		if cancelWorker != nil {
			cancelWorker()
		}
	}()

	for {
		if !workerStarted {
			acquired, err := cache.TryAcquireLock(lockKey, instanceID, configuration.CacheAppWorkerLockTTL)
			if err != nil {
				zap.L().Error("Failed to acquire worker lock", zap.String("worker", workerName), zap.Error(err))
			}

			if acquired {
				zap.L().Info("Acquired worker lock, starting worker", zap.String("worker", workerName))
				workerStarted = true
				var workerCtx context.Context
				workerCtx, cancelWorker = context.WithCancel(ctx)
				go runWorker(workerCtx)
			}
		} else {
			refreshed, err := cache.RefreshLock(lockKey, instanceID, configuration.CacheAppWorkerLockTTL)
			if err != nil || !refreshed {
				zap.L().Warn("Lost worker lock, stopping worker", zap.String("worker", workerName))
				workerStarted = false
				if cancelWorker != nil {
					cancelWorker()
					cancelWorker = nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// NewRouter assembles the HTTP surface: the action-link dispatcher, the
// session and auth API, and the gated data backend.
func NewRouter(
	config models.Configuration,
	db *gorm.DB,
	cache c.ICache,
	sessions *session.Manager,
	providers configuration.Providers,
	activityLogger activity.IActivityLogger,
	appMetrics *metrics.Metrics,
) chi.Router {
	m.InitValidator(maxBodySize)

	flowConfig := config.App.GetFlowConfig()
	dispatcher := actionlink.NewDispatcher(
		actionlink.NewPendingStore(cache, flowConfig.PendingActionTTL),
		config.App.WebURL,
		appMetrics,
	)

	r := chi.NewRouter()

	r.Use(m.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.App.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", m.RequestIDHeader},
		ExposedHeaders:   []string{m.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(m.Visitor(
			config.App.Session.CookieName,
			config.App.Session.SecureCookie,
			time.Duration(config.App.Session.TTL)*time.Hour,
		))
		r.Use(m.RateLimit(cache, config.App.TrustedProxies, config.App.RateLimitPerMinute))

		r.Mount("/auth/action", dispatcher.Routes())

		r.Route("/api/v1", func(apiRouter chi.Router) {
			apiRouter.Use(gate.Middleware(sessions, config.App.WebURL, config.App.RequireVerifiedEmail))

			apiRouter.Mount("/session", services.SessionService{Sessions: sessions}.Routes())

			apiRouter.Mount("/auth", services.AuthService{
				Sessions:       sessions,
				Pending:        dispatcher,
				Providers:      providers,
				Policy:         identity.NewPasswordPolicy(config.App.Password),
				Flows:          flowConfig,
				WebURL:         config.App.WebURL,
				ActivityLogger: activityLogger,
				Metrics:        appMetrics,
			}.Routes())

			apiRouter.Mount("/activity", services.ActivityService{ActivityLogger: activityLogger}.Routes())

			apiRouter.Mount("/courses", services.CourseService{DB: db}.Routes())
			apiRouter.Mount("/assignments", services.AssignmentService{DB: db}.Routes())
			apiRouter.Mount("/tasks", services.TaskService{DB: db}.Routes())
			apiRouter.Mount("/study-plans", services.StudyPlanService{DB: db}.Routes())
			apiRouter.Mount("/notifications", services.NotificationService{DB: db}.Routes())
			apiRouter.Mount("/progress-logs", services.ProgressService{DB: db}.Routes())
			apiRouter.Mount("/stress-indicators", services.StressIndicatorService{DB: db}.Routes())
			apiRouter.Mount("/groups", services.GroupService{DB: db}.Routes())
			apiRouter.Mount("/dashboard", services.DashboardService{DB: db}.Routes())
		})
	})

	return r
}

// StartHTTPServer serves until ctx is cancelled, then drains open requests.
func StartHTTPServer(ctx context.Context, config models.Configuration, handler http.Handler) {
	zap.L().Info("HTTP server starting", zap.Int("port", config.App.Port))

	// No WriteTimeout: event streams stay open for as long as the client listens.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.App.Port),
		Handler:           otelhttp.NewHandler(handler, configuration.AppName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Failed to shut down the HTTP server", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("Failed to start the app", zap.Error(err))
	}
}

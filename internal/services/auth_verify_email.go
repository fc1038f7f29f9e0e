package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"easemyday/internal/activity"
	"easemyday/internal/flows"
	"easemyday/internal/handlers"
	"easemyday/internal/helpers"
	"easemyday/internal/identity"
	"easemyday/internal/metrics"
	m "easemyday/internal/middlewares"
	"easemyday/internal/models"
	"easemyday/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	eventVerify  = "verify"
	pingInterval = 15 * time.Second
)

type VerifyEmailService struct {
	Sessions       *session.Manager
	Pending        flows.PendingActions
	Flows          models.FlowConfig
	ActivityLogger activity.IActivityLogger
	Metrics        *metrics.Metrics
}

func (s VerifyEmailService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.ActionCodeQueryParams]).
		Get("/", handlers.GetOneWithQueryHandler(s.Arrive))
	r.Get("/watch", s.Watch)
	r.Post("/resend", handlers.GetOneHandler(s.Resend))
	return r
}

func (s VerifyEmailService) Arrive(
	ctx context.Context,
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	query models.ActionCodeQueryParams,
) (flows.VerifyView, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return flows.VerifyView{}, err
	}

	flow := flows.NewVerifyFlow(flows.VerifyOptions{
		Session:       visitor.Controller,
		Pending:       s.Pending,
		VisitorID:     visitor.ID,
		RedirectDelay: s.Flows.RedirectDelay,
		Logger:        logger,
		Metrics:       s.Metrics,
	})
	visitor.Mount(screenVerifyEmail, flow)

	view, err := flow.Arrive(ctx, query.OobCode)
	if err != nil {
		return flows.VerifyView{}, flowError(err)
	}
	s.recordVerified(logger, visitor, view)
	return view, nil
}

func (s VerifyEmailService) Resend(
	ctx context.Context,
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
) (flows.VerifyView, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return flows.VerifyView{}, err
	}

	flow, err := mounted[*flows.VerifyFlow](visitor, screenVerifyEmail)
	if err != nil {
		return flows.VerifyView{}, err
	}

	view, err := flow.Resend(ctx)
	if err != nil {
		return flows.VerifyView{}, flowError(err)
	}

	if view.Resend != nil && view.Resend.Sent {
		if user := visitor.Controller.State().User; user != nil {
			activity.Record(logger, s.ActivityLogger, models.ActivityVerificationReq, "Verification email sent", map[string]string{
				"user_id":      user.UID,
				"email_domain": activity.EmailDomain(user.Email),
				"mode":         identity.ModeVerifyEmail,
				"visitor_id":   visitor.ID,
			}, *user)
		}
	}
	return view, nil
}

// Watch streams the mounted screen's view while it polls for a verification
// done elsewhere. Polling stops when the client disconnects.
func (s VerifyEmailService) Watch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := helpers.GetLogger(ctx)

	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		handlers.RespondWithAPIError(w, logger, err)
		return
	}
	flow, err := mounted[*flows.VerifyFlow](visitor, screenVerifyEmail)
	if err != nil {
		handlers.RespondWithAPIError(w, logger, err)
		return
	}

	stream, err := handlers.NewEventStream(w)
	if err != nil {
		handlers.RespondWithAPIError(w, logger, err)
		return
	}
	if err = stream.Send(eventVerify, flow.View()); err != nil {
		return
	}

	type result struct {
		view flows.VerifyView
		err  error
	}
	done := make(chan result, 1)
	go func() {
		view, err := flow.AwaitVerification(ctx, s.Flows.PollInterval)
		done <- result{view: view, err: err}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case res := <-done:
			if ctx.Err() != nil || errors.Is(res.err, flows.ErrClosed) {
				return
			}
			s.recordVerified(logger, visitor, res.view)
			if err = stream.Send(eventVerify, res.view); err != nil {
				logger.Debug("Failed to send verification event", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err = stream.Ping(); err != nil {
				return
			}
		}
	}
}

func (s VerifyEmailService) recordVerified(logger *zap.Logger, visitor *session.Visitor, view flows.VerifyView) {
	if view.State != flows.VerifyVerified {
		return
	}
	user := visitor.Controller.State().User
	if user == nil {
		return
	}
	activity.Record(logger, s.ActivityLogger, models.ActivityEmailVerified, "Email verified", map[string]string{
		"user_id":      user.UID,
		"email_domain": activity.EmailDomain(user.Email),
		"mode":         identity.ModeVerifyEmail,
		"visitor_id":   visitor.ID,
	}, *user)
}

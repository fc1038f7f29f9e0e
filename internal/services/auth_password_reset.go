package services

import (
	"context"

	"easemyday/internal/activity"
	"easemyday/internal/flows"
	"easemyday/internal/handlers"
	"easemyday/internal/identity"
	m "easemyday/internal/middlewares"
	"easemyday/internal/models"
	"easemyday/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PasswordResetService serves the reset screen. Each visitor has at most one
// mounted reset flow; mounting a new one closes the previous.
type PasswordResetService struct {
	Sessions       *session.Manager
	Pending        flows.PendingActions
	Policy         identity.PasswordPolicy
	Flows          models.FlowConfig
	ActivityLogger activity.IActivityLogger
}

func (s PasswordResetService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.ActionCodeQueryParams]).
		Get("/", handlers.GetOneWithQueryHandler(s.Arrive))
	r.With(m.Validate[models.PasswordResetRequestBody]).
		Post("/", handlers.UpdateHandler(s.Request))
	r.With(m.Validate[models.PasswordResetConfirmBody]).
		Post("/confirm", handlers.UpdateHandler(s.Confirm))
	return r
}

func (s PasswordResetService) mount(visitor *session.Visitor, logger *zap.Logger) *flows.ResetFlow {
	flow := flows.NewResetFlow(flows.ResetOptions{
		Session:       visitor.Controller,
		Pending:       s.Pending,
		VisitorID:     visitor.ID,
		Policy:        s.Policy,
		RedirectDelay: s.Flows.RedirectDelay,
		Logger:        logger,
	})
	visitor.Mount(screenResetPassword, flow)
	return flow
}

// Arrive mounts a fresh reset screen and validates the code the link carried,
// or the one left pending by the dispatcher.
func (s PasswordResetService) Arrive(
	ctx context.Context,
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	query models.ActionCodeQueryParams,
) (flows.ResetView, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return flows.ResetView{}, err
	}

	view, err := s.mount(visitor, logger).Arrive(ctx, query.OobCode)
	return view, flowError(err)
}

// Request is also accepted without a prior Arrive; a fresh screen is mounted.
func (s PasswordResetService) Request(
	ctx context.Context,
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	body models.PasswordResetRequestBody,
) (flows.ResetView, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return flows.ResetView{}, err
	}

	flow, err := mounted[*flows.ResetFlow](visitor, screenResetPassword)
	if err != nil {
		flow = s.mount(visitor, logger)
	}

	view, err := flow.Request(ctx, body.Email)
	if err != nil {
		return flows.ResetView{}, flowError(err)
	}

	if view.State == flows.ResetAwaitingConfirmation {
		activity.Record(logger, s.ActivityLogger, models.ActivityPasswordReset, "Password reset requested", map[string]string{
			"email_domain": activity.EmailDomain(body.Email),
			"mode":         identity.ModeResetPassword,
			"visitor_id":   visitor.ID,
		}, nil)
	}
	return view, nil
}

func (s PasswordResetService) Confirm(
	ctx context.Context,
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	body models.PasswordResetConfirmBody,
) (flows.ResetView, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return flows.ResetView{}, err
	}

	flow, err := mounted[*flows.ResetFlow](visitor, screenResetPassword)
	if err != nil {
		return flows.ResetView{}, err
	}

	view, err := flow.Submit(ctx, body.NewPassword, body.ConfirmPassword)
	if err != nil {
		return flows.ResetView{}, flowError(err)
	}

	if view.State == flows.ResetSuccess {
		activity.Record(logger, s.ActivityLogger, models.ActivityPasswordReset, "Password reset", map[string]string{
			"email_domain": activity.EmailDomain(view.Email),
			"mode":         identity.ModeResetPassword,
			"visitor_id":   visitor.ID,
		}, nil)
	}
	return view, nil
}

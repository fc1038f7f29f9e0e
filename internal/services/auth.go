package services

import (
	"context"
	"net/http"

	"easemyday/internal/activity"
	"easemyday/internal/configuration"
	apierrors "easemyday/internal/errors"
	"easemyday/internal/flows"
	"easemyday/internal/handlers"
	h "easemyday/internal/helpers"
	"easemyday/internal/identity"
	"easemyday/internal/metrics"
	m "easemyday/internal/middlewares"
	"easemyday/internal/models"
	"easemyday/internal/session"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type AuthService struct {
	Sessions       *session.Manager
	Pending        flows.PendingActions
	Providers      configuration.Providers
	Policy         identity.PasswordPolicy
	Flows          models.FlowConfig
	WebURL         string
	ActivityLogger activity.IActivityLogger
	Metrics        *metrics.Metrics
}

func (s AuthService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.Validate[models.AuthSignUpBody]).Post("/signup", handlers.CreateHandler(s.SignUp))
	r.With(m.Validate[models.AuthLoginBody]).Post("/login", handlers.UpdateHandler(s.Login))
	r.Post("/logout", handlers.ActionHandler(s.Logout))
	r.Post("/refresh", handlers.GetOneHandler(s.Refresh))
	r.With(m.Validate[models.ProfileUpdateBody]).Patch("/profile", handlers.UpdateHandler(s.UpdateProfile))
	r.With(m.Validate[models.PasswordChangeBody]).Post("/password", handlers.BodyHandler(s.UpdatePassword))

	r.Mount("/reset-password", PasswordResetService{
		Sessions:       s.Sessions,
		Pending:        s.Pending,
		Policy:         s.Policy,
		Flows:          s.Flows,
		ActivityLogger: s.ActivityLogger,
	}.Routes())
	r.Mount("/verify-email", VerifyEmailService{
		Sessions:       s.Sessions,
		Pending:        s.Pending,
		Flows:          s.Flows,
		ActivityLogger: s.ActivityLogger,
		Metrics:        s.Metrics,
	}.Routes())

	r.Route("/providers", func(r chi.Router) {
		r.Get("/", handlers.GetListHandler(s.GetProviderList))
		r.Route("/{provider}", func(r chi.Router) {
			r.Get("/begin", handlers.OpenIDBeginHandler(s.OpenIDBegin))
			r.Get("/callback", handlers.OpenIDCallbackHandler(s.WebURL, s.OpenIDCallback))
		})
	})
	return r
}

func (s AuthService) record(
	logger *zap.Logger,
	visitor *session.Visitor,
	action models.ActivityAction,
	message string,
	principal identity.Principal,
	providerType models.ProviderType,
) {
	activity.Record(logger, s.ActivityLogger, action, message, map[string]string{
		"user_id":       principal.UID,
		"email_domain":  activity.EmailDomain(principal.Email),
		"provider_type": string(providerType),
		"visitor_id":    visitor.ID,
	}, principal)
}

func (s AuthService) SignUp(
	ctx context.Context,
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	body models.AuthSignUpBody,
) (session.State, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return session.State{}, err
	}

	principal, err := visitor.Controller.SignUp(ctx, body.Email, body.Password, body.DisplayName)
	if err != nil {
		return session.State{}, err
	}

	s.record(logger, visitor, models.ActivitySignUp, "Account created", principal, models.LocalProviderType)
	return visitor.Controller.State(), nil
}

func (s AuthService) Login(
	ctx context.Context,
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	body models.AuthLoginBody,
) (session.State, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return session.State{}, err
	}

	principal, err := visitor.Controller.LogIn(ctx, body.Email, body.Password)
	if err != nil {
		logger.Debug("Login rejected", zap.String("kind", string(identity.KindOf(err))))
		return session.State{}, err
	}

	s.record(logger, visitor, models.ActivityLogin, "Signed in", principal, models.LocalProviderType)
	return visitor.Controller.State(), nil
}

// Logout always succeeds. Provider-side failures are logged by the controller.
func (s AuthService) Logout(ctx context.Context, logger *zap.Logger, _ models.UserClaims, _ uuid.UUIDs) error {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return nil
	}

	user := visitor.Controller.State().User
	visitor.Controller.LogOut(ctx)
	if user != nil {
		s.record(logger, visitor, models.ActivityLogout, "Signed out", *user, "")
	}
	return nil
}

func (s AuthService) Refresh(ctx context.Context, _ *zap.Logger, _ models.UserClaims, _ uuid.UUIDs) (session.State, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return session.State{}, err
	}
	if err = visitor.Controller.RefreshCurrentUser(ctx); err != nil {
		return session.State{}, err
	}
	return visitor.Controller.State(), nil
}

func (s AuthService) UpdateProfile(
	ctx context.Context,
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	body models.ProfileUpdateBody,
) (session.State, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return session.State{}, err
	}

	principal, err := visitor.Controller.UpdateProfile(ctx, body.DisplayName)
	if err != nil {
		return session.State{}, err
	}

	s.record(logger, visitor, models.ActivityProfileUpdate, "Profile updated", principal, "")
	return visitor.Controller.State(), nil
}

func (s AuthService) UpdatePassword(
	ctx context.Context,
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	body models.PasswordChangeBody,
) error {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return err
	}

	if err = visitor.Controller.UpdatePassword(ctx, body.CurrentPassword, body.NewPassword); err != nil {
		return err
	}

	if user := visitor.Controller.State().User; user != nil {
		s.record(logger, visitor, models.ActivityPasswordChange, "Password changed", *user, "")
	}
	return nil
}

func (s AuthService) GetProviderList(
	_ context.Context,
	_ *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
) ([]models.ProviderResponse, error) {
	providers := make([]models.ProviderResponse, len(s.Providers))
	for id, provider := range s.Providers {
		if len(provider.Domains) == 0 {
			provider.Domains = []string{}
		}

		providers[provider.Order] = models.ProviderResponse{
			ID:      id,
			Name:    provider.Name,
			Type:    provider.Type,
			Domains: provider.Domains,
		}
	}
	return providers, nil
}

func (s AuthService) OpenIDBegin(providerKey string, state string, nonce string) (string, error) {
	provider, ok := s.Providers[providerKey]
	if !ok {
		return "", apierrors.NewAPIError(http.StatusNotFound, apierrors.ErrProviderNotFound)
	}

	return provider.OauthConfig.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

// OpenIDCallback signs the visitor in with the provider's assertion and
// returns the screen to land on. An empty code means the user abandoned the
// consent screen.
func (s AuthService) OpenIDCallback(
	ctx context.Context, logger *zap.Logger, providerKey string, code string, nonce string,
) (string, error) {
	provider, ok := s.Providers[providerKey]
	if !ok {
		return "", apierrors.NewAPIError(http.StatusNotFound, apierrors.ErrProviderNotFound)
	}

	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return "", err
	}

	// Exchange failures are API errors, which the controller would otherwise
	// report as a provider outage.
	var exchangeErr error
	principal, err := visitor.Controller.LogInWithFederatedProvider(ctx, func(ctx context.Context) (identity.FederatedAssertion, error) {
		if code == "" {
			return identity.FederatedAssertion{}, identity.ErrPopupClosedByUser
		}
		assertion, err := s.exchange(ctx, logger, providerKey, provider, code, nonce)
		exchangeErr = err
		return assertion, err
	})
	if exchangeErr != nil {
		return "", exchangeErr
	}
	if err != nil {
		return "", err
	}

	s.record(logger, visitor, models.ActivityLogin, "Signed in with "+provider.Name, principal, models.OIDCProviderType)

	if !principal.EmailVerified {
		return configuration.ScreenVerifyEmail, nil
	}
	return configuration.ScreenDashboard, nil
}

func (s AuthService) exchange(
	ctx context.Context,
	logger *zap.Logger,
	providerKey string,
	provider configuration.Provider,
	code string,
	nonce string,
) (identity.FederatedAssertion, error) {
	badRequest := apierrors.NewAPIError(http.StatusBadRequest, apierrors.ErrBadRequest)

	oauth2Token, err := provider.OauthConfig.Exchange(ctx, code)
	if err != nil {
		logger.Debug("Failed to exchange token", zap.String("provider", providerKey), zap.Error(err))
		return identity.FederatedAssertion{}, badRequest
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		logger.Debug("No id_token field in oauth2 token", zap.String("provider", providerKey))
		return identity.FederatedAssertion{}, badRequest
	}

	idToken, err := provider.Verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Debug("Failed to verify ID token", zap.String("provider", providerKey), zap.Error(err))
		return identity.FederatedAssertion{}, badRequest
	}

	if idToken.Nonce != nonce {
		logger.Debug("Nonce does not match", zap.String("provider", providerKey))
		return identity.FederatedAssertion{}, badRequest
	}

	userInfo, err := provider.Provider.UserInfo(ctx, oauth2.StaticTokenSource(oauth2Token))
	if err != nil {
		logger.Debug("Failed to get user info", zap.String("provider", providerKey), zap.Error(err))
		return identity.FederatedAssertion{}, badRequest
	}

	if !h.IsDomainAllowed(userInfo.Email, provider.Domains) {
		logger.Debug("Domain not allowed", zap.String("provider", providerKey))
		return identity.FederatedAssertion{}, apierrors.NewAPIError(http.StatusForbidden, apierrors.ErrDomainBlocked)
	}

	var profile struct {
		Name string `json:"name"`
	}
	if err = userInfo.Claims(&profile); err != nil {
		logger.Debug("Failed to read profile claims", zap.Error(err))
	}

	return identity.FederatedAssertion{
		ProviderKey:   providerKey,
		ProviderID:    provider.FirebaseProviderID,
		Subject:       idToken.Subject,
		Email:         userInfo.Email,
		EmailVerified: userInfo.EmailVerified,
		DisplayName:   profile.Name,
		IDToken:       rawIDToken,
	}, nil
}

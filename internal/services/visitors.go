package services

import (
	"context"
	"errors"
	"net/http"

	apierrors "easemyday/internal/errors"
	"easemyday/internal/flows"
	"easemyday/internal/helpers"
	"easemyday/internal/session"
)

// Names under which screens are mounted on a visitor.
const (
	screenResetPassword = "reset_password"
	screenVerifyEmail   = "verify_email"
)

func visitorOf(ctx context.Context, sessions *session.Manager) (*session.Visitor, error) {
	visitorID, err := helpers.GetVisitorID(ctx)
	if err != nil {
		return nil, apierrors.NewAPIError(http.StatusUnauthorized, apierrors.ErrUnauthenticated)
	}
	return sessions.Get(visitorID), nil
}

func mounted[T session.Screen](visitor *session.Visitor, name string) (T, error) {
	var zero T
	screen, ok := visitor.Screen(name)
	if !ok {
		return zero, apierrors.NewAPIError(http.StatusConflict, apierrors.ErrNoScreen)
	}
	typed, ok := screen.(T)
	if !ok {
		return zero, apierrors.NewAPIError(http.StatusConflict, apierrors.ErrNoScreen)
	}
	return typed, nil
}

// flowError maps the screen guards to API errors. Domain failures are part
// of the returned view and never reach this.
func flowError(err error) error {
	switch {
	case errors.Is(err, flows.ErrBusy):
		return apierrors.NewAPIError(http.StatusConflict, apierrors.ErrBusy)
	case errors.Is(err, flows.ErrClosed):
		return apierrors.NewAPIError(http.StatusConflict, apierrors.ErrNoScreen)
	case errors.Is(err, flows.ErrNoCode):
		return apierrors.NewAPIError(http.StatusBadRequest, apierrors.ErrMissingCode)
	}
	return err
}

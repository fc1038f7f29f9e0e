package apierrors

import (
	"errors"
	"fmt"
	"net/http"

	"easemyday/internal/identity"
)

// APIError is rendered as {"status": Code, "error": Errors, "message": Message}.
type APIError struct {
	Code    int
	Errors  []string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %v", e.Code, e.Errors)
}

func NewAPIError(code int, err string) *APIError {
	return &APIError{Code: code, Errors: []string{err}}
}

// WithMessage attaches the text shown to the user.
func (e *APIError) WithMessage(message string) *APIError {
	e.Message = message
	return e
}

var identityStatus = map[identity.Kind]int{
	identity.KindInvalidEmail:         http.StatusBadRequest,
	identity.KindWeakPassword:         http.StatusBadRequest,
	identity.KindInvalidCode:          http.StatusBadRequest,
	identity.KindPopupClosedByUser:    http.StatusBadRequest,
	identity.KindInvalidCredentials:   http.StatusUnauthorized,
	identity.KindNoCurrentUser:        http.StatusUnauthorized,
	identity.KindWrongCurrentPassword: http.StatusUnauthorized,
	identity.KindSessionExpired:       http.StatusUnauthorized,
	identity.KindAccountDisabled:      http.StatusForbidden,
	identity.KindEmailAlreadyInUse:    http.StatusConflict,
	identity.KindExpiredCode:          http.StatusGone,
	identity.KindRateLimited:          http.StatusTooManyRequests,
	identity.KindProviderUnavailable:  http.StatusServiceUnavailable,
}

// StatusOf returns the HTTP status of an identity error kind.
func StatusOf(kind identity.Kind) int {
	if status, ok := identityStatus[kind]; ok {
		return status
	}
	return http.StatusServiceUnavailable
}

// FromIdentity converts an identity failure into its API form. The provider's
// own error text is dropped; only the fixed message of the kind is kept.
func FromIdentity(err error) *APIError {
	kind := identity.KindOf(err)
	return &APIError{
		Code:    StatusOf(kind),
		Errors:  []string{string(kind)},
		Message: kind.Message(),
	}
}

// From normalises any handler error. Identity errors keep their kind and
// anything unknown becomes a 500.
func From(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var identityErr *identity.Error
	if errors.As(err, &identityErr) {
		return FromIdentity(err)
	}
	return NewAPIError(http.StatusInternalServerError, ErrInternal)
}

package identity

import (
	"errors"
	"fmt"
)

// Kind is the user-facing classification of an identity failure.
type Kind string

const (
	KindInvalidEmail         Kind = "INVALID_EMAIL"
	KindWeakPassword         Kind = "WEAK_PASSWORD"
	KindEmailAlreadyInUse    Kind = "EMAIL_ALREADY_IN_USE"
	KindInvalidCredentials   Kind = "INVALID_CREDENTIALS"
	KindAccountDisabled      Kind = "ACCOUNT_DISABLED"
	KindExpiredCode          Kind = "EXPIRED_CODE"
	KindInvalidCode          Kind = "INVALID_CODE"
	KindRateLimited          Kind = "RATE_LIMITED"
	KindPopupClosedByUser    Kind = "POPUP_CLOSED_BY_USER"
	KindNoCurrentUser        Kind = "NO_CURRENT_USER"
	KindWrongCurrentPassword Kind = "WRONG_CURRENT_PASSWORD"
	KindProviderUnavailable  Kind = "PROVIDER_UNAVAILABLE"
	KindSessionExpired       Kind = "SESSION_EXPIRED"
)

var messages = map[Kind]string{
	KindInvalidEmail:         "Please enter a valid email address.",
	KindWeakPassword:         "Password does not meet the requirements.",
	KindEmailAlreadyInUse:    "An account already exists with this email.",
	KindInvalidCredentials:   "Invalid email or password.",
	KindAccountDisabled:      "This account has been disabled.",
	KindExpiredCode:          "This link has expired. Please request a new one.",
	KindInvalidCode:          "This link is invalid or has already been used.",
	KindRateLimited:          "Too many requests. Please wait a moment and try again.",
	KindPopupClosedByUser:    "Sign-in was cancelled.",
	KindNoCurrentUser:        "You need to sign in first.",
	KindWrongCurrentPassword: "Current password is incorrect.",
	KindProviderUnavailable:  "The service is temporarily unavailable. Please try again.",
	KindSessionExpired:       "Your session has expired. Please sign in again.",
}

// Message is the fixed text shown to the user for this kind.
func (k Kind) Message() string {
	if msg, ok := messages[k]; ok {
		return msg
	}
	return messages[KindProviderUnavailable]
}

// Infrastructure reports failures that are not the user's fault.
func (k Kind) Infrastructure() bool {
	return k == KindProviderUnavailable
}

// Silent kinds are recoverable without showing anything.
func (k Kind) Silent() bool {
	return k == KindPopupClosedByUser
}

// Error carries a Kind and, optionally, the provider failure behind it.
// The wrapped error is for logs only and never reaches the user.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any identity error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidEmail         = &Error{Kind: KindInvalidEmail}
	ErrWeakPassword         = &Error{Kind: KindWeakPassword}
	ErrEmailAlreadyInUse    = &Error{Kind: KindEmailAlreadyInUse}
	ErrInvalidCredentials   = &Error{Kind: KindInvalidCredentials}
	ErrAccountDisabled      = &Error{Kind: KindAccountDisabled}
	ErrExpiredCode          = &Error{Kind: KindExpiredCode}
	ErrInvalidCode          = &Error{Kind: KindInvalidCode}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
	ErrPopupClosedByUser    = &Error{Kind: KindPopupClosedByUser}
	ErrNoCurrentUser        = &Error{Kind: KindNoCurrentUser}
	ErrWrongCurrentPassword = &Error{Kind: KindWrongCurrentPassword}
	ErrProviderUnavailable  = &Error{Kind: KindProviderUnavailable}
	ErrSessionExpired       = &Error{Kind: KindSessionExpired}
)

// Wrap tags err with kind.
func Wrap(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Unavailable tags an infrastructure failure.
func Unavailable(err error) error {
	return &Error{Kind: KindProviderUnavailable, Err: err}
}

// KindOf classifies err. Anything that is not an identity error is treated as
// an infrastructure failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindProviderUnavailable
}

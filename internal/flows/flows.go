// Package flows holds the per-visitor screen state machines that consume
// action codes: password reset and email verification.
package flows

import (
	"context"
	"errors"
	"time"

	"easemyday/internal/identity"
	"easemyday/internal/session"
)

var (
	// ErrBusy rejects a submission while the previous one is in flight.
	ErrBusy = errors.New("flow busy")
	// ErrClosed is returned once the screen has been replaced or left.
	ErrClosed = errors.New("flow closed")
	// ErrNoCode means there is no code to submit against.
	ErrNoCode = errors.New("no action code")
)

// Next tells the screen where to go and when.
type Next struct {
	To      string `json:"to"`
	AfterMS int64  `json:"after_ms"`
}

func nextAfter(to string, delay time.Duration) *Next {
	return &Next{To: to, AfterMS: delay.Milliseconds()}
}

// FieldError is an inline form error. The screen keeps its state.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	FieldPasswordMismatch = "PASSWORD_MISMATCH"
	messagePasswordMatch  = "Passwords do not match."
)

// PendingActions resolves and clears the code of the visitor's pending link.
type PendingActions interface {
	Recover(ctx context.Context, visitorID, mode, carried string) (string, error)
	Consume(ctx context.Context, visitorID string)
}

// ResetSession is the part of the session controller the reset screen uses.
type ResetSession interface {
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyPasswordResetCode(ctx context.Context, code string) (string, error)
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
}

// VerifySession is the part of the session controller the verification screen uses.
type VerifySession interface {
	State() session.State
	IsEmailVerified() bool
	ApplyActionCode(ctx context.Context, code string) error
	RefreshCurrentUser(ctx context.Context) error
	SendVerificationEmail(ctx context.Context) error
}

// codeSpent reports failures after which the code can never succeed.
func codeSpent(err error) bool {
	switch identity.KindOf(err) {
	case identity.KindExpiredCode, identity.KindInvalidCode:
		return true
	}
	return false
}

func errorStateOf(err error) *session.ErrorState {
	kind := identity.KindOf(err)
	return &session.ErrorState{
		Kind:           kind,
		Message:        kind.Message(),
		Infrastructure: kind.Infrastructure(),
	}
}

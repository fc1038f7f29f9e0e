package flows

import (
	"context"
	"sync"
	"time"

	"easemyday/internal/configuration"
	"easemyday/internal/identity"
	"easemyday/internal/session"

	"go.uber.org/zap"
)

type ResetState string

const (
	ResetRequesting           ResetState = "requesting"
	ResetAwaitingConfirmation ResetState = "awaiting_confirmation"
	ResetCodeValidating       ResetState = "code_validating"
	ResetCodeValid            ResetState = "code_valid"
	ResetSubmitting           ResetState = "submitting"
	ResetSuccess              ResetState = "success"
	ResetError                ResetState = "error"
)

// ResetView is what the reset screen renders.
type ResetView struct {
	State      ResetState          `json:"state"`
	Busy       bool                `json:"busy"`
	Email      string              `json:"email,omitempty"`
	Error      *session.ErrorState `json:"error,omitempty"`
	FieldError *FieldError         `json:"field_error,omitempty"`
	Next       *Next               `json:"next,omitempty"`
}

type ResetOptions struct {
	Session       ResetSession
	Pending       PendingActions
	VisitorID     string
	Policy        identity.PasswordPolicy
	RedirectDelay time.Duration
	Logger        *zap.Logger
}

// ResetFlow drives one mount of the password-reset screen.
type ResetFlow struct {
	opts ResetOptions

	mu     sync.Mutex
	view   ResetView
	code   string
	closed bool
}

func NewResetFlow(opts ResetOptions) *ResetFlow {
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return &ResetFlow{opts: opts, view: ResetView{State: ResetRequesting}}
}

func (f *ResetFlow) View() ResetView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *ResetFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// start marks the flow busy and moves it to state.
func (f *ResetFlow) start(state ResetState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if f.view.Busy {
		return ErrBusy
	}
	f.view = ResetView{State: state, Busy: true, Email: f.view.Email}
	return nil
}

// finish applies the outcome of a provider call unless the screen is gone.
func (f *ResetFlow) finish(apply func(view *ResetView)) (ResetView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ResetView{}, ErrClosed
	}
	f.view.Busy = false
	apply(&f.view)
	return f.view, nil
}

// Arrive validates the code of an action link. Without a code the screen
// starts at requesting.
func (f *ResetFlow) Arrive(ctx context.Context, carried string) (ResetView, error) {
	code, err := f.opts.Pending.Recover(ctx, f.opts.VisitorID, identity.ModeResetPassword, carried)
	if err != nil {
		f.opts.Logger.Warn("Failed to read pending action", zap.Error(err))
	}
	if code == "" {
		return f.View(), nil
	}

	if err = f.start(ResetCodeValidating); err != nil {
		return ResetView{}, err
	}

	email, err := f.opts.Session.VerifyPasswordResetCode(ctx, code)
	if err != nil && codeSpent(err) {
		f.opts.Pending.Consume(ctx, f.opts.VisitorID)
	}

	return f.finish(func(view *ResetView) {
		if err != nil {
			view.State = ResetError
			view.Error = errorStateOf(err)
			return
		}
		f.code = code
		view.State = ResetCodeValid
		view.Email = email
	})
}

// Request asks for a reset email. The screen confirms whether or not the
// address is registered. A code validated earlier on this screen is dropped.
func (f *ResetFlow) Request(ctx context.Context, email string) (ResetView, error) {
	if err := f.start(ResetRequesting); err != nil {
		return ResetView{}, err
	}
	f.mu.Lock()
	f.code = ""
	f.mu.Unlock()

	err := f.opts.Session.RequestPasswordReset(ctx, email)

	return f.finish(func(view *ResetView) {
		if err != nil {
			view.State = ResetError
			view.Error = errorStateOf(err)
			return
		}
		view.State = ResetAwaitingConfirmation
		view.Email = email
	})
}

// Submit sets the new password. Input that fails the form checks never
// reaches the provider and leaves the code unspent.
func (f *ResetFlow) Submit(ctx context.Context, newPassword, confirmPassword string) (ResetView, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ResetView{}, ErrClosed
	}
	if f.view.Busy {
		f.mu.Unlock()
		return ResetView{}, ErrBusy
	}
	if f.code == "" {
		f.mu.Unlock()
		return ResetView{}, ErrNoCode
	}

	var fieldError *FieldError
	if newPassword != confirmPassword {
		fieldError = &FieldError{Code: FieldPasswordMismatch, Message: messagePasswordMatch}
	} else if err := f.opts.Policy.Validate(newPassword); err != nil {
		fieldError = &FieldError{Code: string(identity.KindWeakPassword), Message: f.opts.Policy.Describe()}
	}
	if fieldError != nil {
		f.view = ResetView{State: ResetSubmitting, Email: f.view.Email, FieldError: fieldError}
		view := f.view
		f.mu.Unlock()
		return view, nil
	}

	code := f.code
	f.view = ResetView{State: ResetSubmitting, Busy: true, Email: f.view.Email}
	f.mu.Unlock()

	err := f.opts.Session.ConfirmPasswordReset(ctx, code, newPassword)
	if err == nil || codeSpent(err) {
		f.opts.Pending.Consume(ctx, f.opts.VisitorID)
	}

	return f.finish(func(view *ResetView) {
		if err != nil {
			// A code that is still good can be submitted again.
			if codeSpent(err) {
				f.code = ""
			}
			view.State = ResetError
			view.Error = errorStateOf(err)
			return
		}
		f.code = ""
		view.State = ResetSuccess
		view.Next = nextAfter(configuration.ScreenLogin, f.opts.RedirectDelay)
	})
}

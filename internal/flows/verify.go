package flows

import (
	"context"
	"sync"
	"time"

	"easemyday/internal/configuration"
	"easemyday/internal/identity"
	"easemyday/internal/metrics"
	"easemyday/internal/session"

	"go.uber.org/zap"
)

type VerifyState string

const (
	VerifyProcessing VerifyState = "processing"
	// VerifyAwaiting is a signed-in, unverified visitor without a code. The
	// screen waits for verification done elsewhere.
	VerifyAwaiting VerifyState = "awaiting"
	VerifyVerified VerifyState = "verified"
	VerifyError    VerifyState = "error"
)

// ResendResult is the inline outcome of the resend action.
type ResendResult struct {
	Sent  bool                `json:"sent"`
	Error *session.ErrorState `json:"error,omitempty"`
}

// VerifyView is what the verification screen renders.
type VerifyView struct {
	State     VerifyState         `json:"state"`
	Busy      bool                `json:"busy"`
	Error     *session.ErrorState `json:"error,omitempty"`
	CanResend bool                `json:"can_resend"`
	Resend    *ResendResult       `json:"resend,omitempty"`
	Next      *Next               `json:"next,omitempty"`
}

type VerifyOptions struct {
	Session       VerifySession
	Pending       PendingActions
	VisitorID     string
	RedirectDelay time.Duration
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// VerifyFlow drives one mount of the email-verification screen.
type VerifyFlow struct {
	opts VerifyOptions

	mu        sync.Mutex
	view      VerifyView
	resending bool
	closed    bool
	done      chan struct{}
}

func NewVerifyFlow(opts VerifyOptions) *VerifyFlow {
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return &VerifyFlow{
		opts: opts,
		view: VerifyView{State: VerifyProcessing},
		done: make(chan struct{}),
	}
}

func (f *VerifyFlow) View() VerifyView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Close stops the poller and discards any result still in flight.
func (f *VerifyFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
}

func (f *VerifyFlow) update(apply func(view *VerifyView)) (VerifyView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return VerifyView{}, ErrClosed
	}
	apply(&f.view)
	return f.view, nil
}

func (f *VerifyFlow) verified(view *VerifyView) {
	view.State = VerifyVerified
	view.Busy = false
	view.Error = nil
	view.CanResend = false
	view.Next = nextAfter(configuration.ScreenDashboard, f.opts.RedirectDelay)
}

// Arrive applies the code of an action link. Without one, a signed-in
// unverified visitor is left awaiting verification.
func (f *VerifyFlow) Arrive(ctx context.Context, carried string) (VerifyView, error) {
	code, err := f.opts.Pending.Recover(ctx, f.opts.VisitorID, identity.ModeVerifyEmail, carried)
	if err != nil {
		f.opts.Logger.Warn("Failed to read pending action", zap.Error(err))
	}

	if code == "" {
		state := f.opts.Session.State()
		return f.update(func(view *VerifyView) {
			switch {
			case state.IsEmailVerified():
				f.verified(view)
			case state.User == nil:
				view.State = VerifyError
				view.Error = errorStateOf(identity.ErrNoCurrentUser)
			default:
				view.State = VerifyAwaiting
				view.CanResend = true
			}
		})
	}

	if _, err = f.update(func(view *VerifyView) {
		*view = VerifyView{State: VerifyProcessing, Busy: true}
	}); err != nil {
		return VerifyView{}, err
	}

	err = f.opts.Session.ApplyActionCode(ctx, code)
	if err != nil && codeSpent(err) && f.alreadyVerified(ctx) {
		// A second click on the same link.
		err = nil
	}
	if err == nil || codeSpent(err) {
		f.opts.Pending.Consume(ctx, f.opts.VisitorID)
	}

	return f.update(func(view *VerifyView) {
		if err == nil {
			f.verified(view)
			return
		}
		view.State = VerifyError
		view.Busy = false
		view.Error = errorStateOf(err)
		view.CanResend = codeSpent(err) && f.opts.Session.State().User != nil
	})
}

func (f *VerifyFlow) alreadyVerified(ctx context.Context) bool {
	if f.opts.Session.State().User == nil {
		return false
	}
	if err := f.opts.Session.RefreshCurrentUser(ctx); err != nil {
		return false
	}
	return f.opts.Session.IsEmailVerified()
}

// Resend sends a new verification email. The outcome is shown inline and
// never changes the screen's state.
func (f *VerifyFlow) Resend(ctx context.Context) (VerifyView, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return VerifyView{}, ErrClosed
	}
	if f.resending {
		f.mu.Unlock()
		return VerifyView{}, ErrBusy
	}
	f.resending = true
	f.mu.Unlock()

	err := f.opts.Session.SendVerificationEmail(ctx)

	f.mu.Lock()
	f.resending = false
	f.mu.Unlock()

	return f.update(func(view *VerifyView) {
		if err != nil {
			view.Resend = &ResendResult{Error: errorStateOf(err)}
			return
		}
		view.Resend = &ResendResult{Sent: true}
	})
}

// AwaitVerification reloads the principal every interval until the email is
// verified, the screen is closed or ctx ends. It returns the final view.
func (f *VerifyFlow) AwaitVerification(ctx context.Context, interval time.Duration) (VerifyView, error) {
	if view := f.View(); view.State == VerifyVerified {
		return view, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return f.View(), ctx.Err()
		case <-f.done:
			return VerifyView{}, ErrClosed
		case <-ticker.C:
		}

		f.opts.Metrics.IncrementVerificationPolls()
		err := f.opts.Session.RefreshCurrentUser(ctx)
		switch {
		case err == nil && f.opts.Session.IsEmailVerified():
			return f.update(f.verified)
		case err == nil, identity.KindOf(err).Infrastructure():
			// Keep polling through transient provider failures.
			if err != nil {
				f.opts.Logger.Debug("Verification poll failed", zap.Error(err))
			}
		default:
			view, updateErr := f.update(func(view *VerifyView) {
				view.State = VerifyError
				view.Error = errorStateOf(err)
				view.CanResend = false
			})
			if updateErr != nil {
				return VerifyView{}, updateErr
			}
			return view, err
		}
	}
}

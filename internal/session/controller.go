package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"easemyday/internal/broadcast"
	"easemyday/internal/identity"
	"easemyday/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	OpSignUp               = "sign_up"
	OpLogIn                = "log_in"
	OpLogInFederated       = "log_in_federated"
	OpLogOut               = "log_out"
	OpRequestPasswordReset = "request_password_reset"
	OpVerifyResetCode      = "verify_password_reset_code"
	OpConfirmPasswordReset = "confirm_password_reset"
	OpSendVerification     = "send_verification_email"
	OpApplyActionCode      = "apply_action_code"
	OpUpdatePassword       = "update_password"
	OpUpdateProfile        = "update_profile"
	OpRefresh              = "refresh_current_user"
)

const changeBuffer = 16

// Options are the collaborators shared by every controller of a process.
type Options struct {
	Provider identity.Provider
	Store    CredentialStore
	Policy   identity.PasswordPolicy
	// ActionURL is the dispatcher endpoint embedded in provider emails.
	ActionURL string
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Controller is the single owner of one visitor's session state. Operations
// may run concurrently with each other and with provider pushes; provider
// calls are made outside the lock and their results are applied only if the
// credential they started from is still the live one.
type Controller struct {
	visitorID string
	provider  identity.Provider
	store     CredentialStore
	policy    identity.PasswordPolicy
	actionURL string
	logger    *zap.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	mu    sync.RWMutex
	state State
	cred  *identity.Credential
	// epoch counts sign-ins and sign-outs so that the initial restore cannot
	// overwrite a session that changed while it was in flight.
	epoch uint64
	// rotating is the session id of an in-flight password change. Sign-outs
	// aimed at it wait until the replacement credential is known.
	rotating string
	deferred []identity.StateChange

	changes chan identity.StateChange
	states  *broadcast.Broadcaster[State]
	ready   chan struct{}
	done    chan struct{}
}

func NewController(visitorID string, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}

	c := &Controller{
		visitorID: visitorID,
		provider:  opts.Provider,
		store:     opts.Store,
		policy:    opts.Policy,
		actionURL: opts.ActionURL,
		logger:    logger.With(zap.String("visitor_id", visitorID)),
		metrics:   opts.Metrics,
		tracer:    otel.Tracer("easemyday/session"),
		state:     State{IsLoading: true},
		changes:   make(chan identity.StateChange, changeBuffer),
		states:    broadcast.New[State](),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	c.states.Publish(c.state.clone())
	return c
}

// Run resolves the initial state and then folds provider pushes into the
// session until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	defer c.states.Close()

	c.restore(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case change := <-c.changes:
			c.apply(ctx, change)
		}
	}
}

// Notify queues a provider push. It never blocks once Run has returned.
func (c *Controller) Notify(change identity.StateChange) {
	select {
	case c.changes <- change:
	case <-c.done:
	}
}

// Ready is closed once the initial state has been resolved.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

func (c *Controller) IsEmailVerified() bool {
	return c.State().IsEmailVerified()
}

// UID is the signed-in principal's id, or "".
func (c *Controller) UID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cred == nil {
		return ""
	}
	return c.cred.Principal.UID
}

// Subscribe delivers the current state and then every later one, latest wins.
func (c *Controller) Subscribe() (<-chan State, func()) {
	return c.states.Subscribe()
}

// commit runs fn under the lock. When fn reports a change, the derived fields
// are recomputed and the new state is published.
func (c *Controller) commit(fn func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !fn() {
		return
	}
	c.state.Version++
	c.state.User = nil
	if c.cred != nil {
		principal := c.cred.Principal
		c.state.User = &principal
	}
	c.states.Publish(c.state.clone())
}

func (c *Controller) current() *identity.Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cred == nil {
		return nil
	}
	cred := *c.cred
	return &cred
}

func (c *Controller) persist(ctx context.Context, cred identity.Credential) {
	if err := c.store.Save(ctx, c.visitorID, cred); err != nil {
		c.logger.Error("Failed to persist credential", zap.Error(err))
	}
}

func (c *Controller) forget(ctx context.Context) {
	if err := c.store.Delete(ctx, c.visitorID); err != nil {
		c.logger.Error("Failed to delete stored credential", zap.Error(err))
	}
}

func (c *Controller) signIn(ctx context.Context, cred identity.Credential) {
	c.commit(func() bool {
		c.cred = &cred
		c.epoch++
		return true
	})
	c.persist(ctx, cred)
}

// signOutIfCurrent clears the session if started is still the live credential.
func (c *Controller) signOutIfCurrent(ctx context.Context, started identity.Credential) bool {
	cleared := false
	c.commit(func() bool {
		if c.cred == nil || c.cred.SessionID != started.SessionID {
			return false
		}
		c.cred = nil
		c.epoch++
		cleared = true
		return true
	})
	if cleared {
		c.forget(ctx)
	}
	return cleared
}

// replaceIfCurrent swaps in next if started is still the live credential.
func (c *Controller) replaceIfCurrent(ctx context.Context, started, next identity.Credential) bool {
	applied := false
	c.commit(func() bool {
		if c.cred == nil || c.cred.SessionID != started.SessionID {
			return false
		}
		c.cred = &next
		applied = true
		return true
	})
	if applied {
		c.persist(ctx, next)
	} else {
		c.logger.Debug("Discarded result for a credential that is no longer current")
	}
	return applied
}

// expireIfRejected turns a provider rejection of the credential into an
// unsolicited transition to anonymous.
func (c *Controller) expireIfRejected(ctx context.Context, started identity.Credential, err error) {
	switch identity.KindOf(err) {
	case identity.KindSessionExpired, identity.KindAccountDisabled:
		if c.signOutIfCurrent(ctx, started) {
			c.logger.Info("Session rejected by provider", zap.Error(err))
		}
	}
}

func (c *Controller) restore(ctx context.Context) {
	defer close(c.ready)

	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	var restored *identity.Credential
	var lastError *ErrorState

	stored, err := c.store.Load(ctx, c.visitorID)
	switch {
	case err != nil:
		c.logger.Error("Failed to load stored credential", zap.Error(err))
		lastError = errorStateOf(identity.Unavailable(err))
	case stored != nil:
		next, err := c.provider.ReloadPrincipal(ctx, *stored)
		if err == nil {
			restored = &next
			c.persist(ctx, next)
		} else if identity.KindOf(err).Infrastructure() {
			// The provider could not answer; keep what it last reported.
			c.logger.Warn("Restoring session without reload", zap.Error(err))
			restored = stored
			lastError = errorStateOf(err)
		} else {
			c.logger.Info("Stored credential rejected", zap.Error(err))
			c.forget(ctx)
		}
	}

	c.commit(func() bool {
		c.state.IsLoading = false
		if c.epoch == epoch {
			c.cred = restored
			if lastError != nil {
				c.state.LastError = lastError
			}
		}
		return true
	})
}

func (c *Controller) apply(ctx context.Context, change identity.StateChange) {
	switch change.Kind {
	case identity.ChangeSignedOut:
		cleared := false
		c.commit(func() bool {
			if c.cred == nil || c.cred.Principal.UID != change.UID || c.cred.SessionID == change.KeepSession {
				return false
			}
			if c.rotating != "" && c.rotating == c.cred.SessionID {
				c.deferred = append(c.deferred, change)
				return false
			}
			c.cred = nil
			c.epoch++
			cleared = true
			return true
		})
		if cleared {
			c.forget(ctx)
			c.logger.Info("Signed out by provider")
		}

	case identity.ChangeUpdated:
		if change.Principal == nil {
			return
		}
		var updated *identity.Credential
		c.commit(func() bool {
			if c.cred == nil || c.cred.Principal.UID != change.UID {
				return false
			}
			next := *c.cred
			next.Principal = *change.Principal
			c.cred = &next
			updated = &next
			return true
		})
		if updated != nil {
			c.persist(ctx, *updated)
		}
	}
}

func (c *Controller) begin(ctx context.Context, op string) (context.Context, trace.Span) {
	c.commit(func() bool {
		if c.state.LastError == nil {
			return false
		}
		c.state.LastError = nil
		return true
	})
	return c.tracer.Start(ctx, "session."+op, trace.WithAttributes(attribute.String("visitor.id", c.visitorID)))
}

// finish records the outcome of op. Failures are normalised to identity
// errors and stored as the last error.
func (c *Controller) finish(span trace.Span, op string, err error) error {
	defer span.End()
	c.metrics.RecordOperation(op, err)

	if err == nil {
		return nil
	}

	var identityErr *identity.Error
	if !errors.As(err, &identityErr) {
		err = identity.Unavailable(err)
	}
	kind := identity.KindOf(err)

	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))

	if kind.Infrastructure() {
		c.logger.Error("Session operation failed", zap.String("operation", op), zap.String("kind", string(kind)), zap.Error(err))
	} else {
		c.logger.Info("Session operation failed", zap.String("operation", op), zap.String("kind", string(kind)), zap.Error(err))
	}

	c.commit(func() bool {
		c.state.LastError = errorStateOf(err)
		return true
	})
	return err
}

// SignUp creates the account, names it and sends the first verification email.
func (c *Controller) SignUp(ctx context.Context, email, password, displayName string) (identity.Principal, error) {
	ctx, span := c.begin(ctx, OpSignUp)
	principal, err := c.signUp(ctx, email, password, displayName)
	return principal, c.finish(span, OpSignUp, err)
}

func (c *Controller) signUp(ctx context.Context, email, password, displayName string) (identity.Principal, error) {
	if err := identity.ValidateEmail(strings.TrimSpace(email)); err != nil {
		return identity.Principal{}, err
	}
	if err := c.policy.Validate(password); err != nil {
		return identity.Principal{}, err
	}

	cred, err := c.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return identity.Principal{}, err
	}

	if displayName = strings.TrimSpace(displayName); displayName != "" {
		named, err := c.provider.UpdateProfile(ctx, cred, displayName)
		if err != nil {
			c.logger.Warn("Failed to set display name after sign-up", zap.Error(err))
		} else {
			cred = named
		}
	}

	c.signIn(ctx, cred)

	// The account exists either way; the user can resend from the verify screen.
	if err = c.provider.SendVerificationMessage(ctx, cred, c.actionURL); err != nil {
		c.logger.Warn("Failed to send verification email after sign-up", zap.Error(err))
	}
	return cred.Principal, nil
}

func (c *Controller) LogIn(ctx context.Context, email, password string) (identity.Principal, error) {
	ctx, span := c.begin(ctx, OpLogIn)

	cred, err := c.provider.Authenticate(ctx, email, password)
	if err != nil {
		return identity.Principal{}, c.finish(span, OpLogIn, err)
	}

	c.signIn(ctx, cred)
	return cred.Principal, c.finish(span, OpLogIn, nil)
}

// LogInWithFederatedProvider completes an external sign-in. resolve performs
// the provider exchange and returns ErrPopupClosedByUser when the user
// abandoned it.
func (c *Controller) LogInWithFederatedProvider(
	ctx context.Context,
	resolve func(ctx context.Context) (identity.FederatedAssertion, error),
) (identity.Principal, error) {
	ctx, span := c.begin(ctx, OpLogInFederated)

	assertion, err := resolve(ctx)
	if err != nil {
		return identity.Principal{}, c.finish(span, OpLogInFederated, err)
	}

	cred, err := c.provider.AuthenticateFederated(ctx, assertion)
	if err != nil {
		return identity.Principal{}, c.finish(span, OpLogInFederated, err)
	}

	c.signIn(ctx, cred)
	return cred.Principal, c.finish(span, OpLogInFederated, nil)
}

// LogOut always leaves the session anonymous. Provider failures are logged.
func (c *Controller) LogOut(ctx context.Context) {
	ctx, span := c.begin(ctx, OpLogOut)

	var ended *identity.Credential
	c.commit(func() bool {
		ended = c.cred
		c.cred = nil
		c.epoch++
		return ended != nil
	})
	c.forget(ctx)

	if ended != nil {
		if err := c.provider.EndSession(ctx, *ended); err != nil {
			c.logger.Warn("Failed to end provider session", zap.Error(err))
		}
	}
	_ = c.finish(span, OpLogOut, nil)
}

// RequestPasswordReset succeeds for unregistered addresses too.
func (c *Controller) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, span := c.begin(ctx, OpRequestPasswordReset)

	err := identity.ValidateEmail(strings.TrimSpace(email))
	if err == nil {
		err = c.provider.SendPasswordResetMessage(ctx, email, c.actionURL)
	}
	return c.finish(span, OpRequestPasswordReset, err)
}

// VerifyPasswordResetCode returns the email the code was issued for.
func (c *Controller) VerifyPasswordResetCode(ctx context.Context, code string) (string, error) {
	ctx, span := c.begin(ctx, OpVerifyResetCode)

	if code == "" {
		return "", c.finish(span, OpVerifyResetCode, identity.ErrInvalidCode)
	}
	email, err := c.provider.ResolveResetCode(ctx, code)
	return email, c.finish(span, OpVerifyResetCode, err)
}

func (c *Controller) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	ctx, span := c.begin(ctx, OpConfirmPasswordReset)

	var err error
	switch {
	case code == "":
		err = identity.ErrInvalidCode
	default:
		if err = c.policy.Validate(newPassword); err == nil {
			err = c.provider.ConsumeResetCode(ctx, code, newPassword)
		}
	}
	return c.finish(span, OpConfirmPasswordReset, err)
}

// SendVerificationEmail never changes the principal.
func (c *Controller) SendVerificationEmail(ctx context.Context) error {
	ctx, span := c.begin(ctx, OpSendVerification)

	started := c.current()
	if started == nil {
		return c.finish(span, OpSendVerification, identity.ErrNoCurrentUser)
	}

	err := c.provider.SendVerificationMessage(ctx, *started, c.actionURL)
	if err != nil {
		c.expireIfRejected(ctx, *started, err)
	}
	return c.finish(span, OpSendVerification, err)
}

// ApplyActionCode consumes a verification code and then reloads the signed-in
// principal, if any. The code may belong to another account, so the verified
// flag is only ever taken from the provider.
func (c *Controller) ApplyActionCode(ctx context.Context, code string) error {
	ctx, span := c.begin(ctx, OpApplyActionCode)

	if code == "" {
		return c.finish(span, OpApplyActionCode, identity.ErrInvalidCode)
	}
	if err := c.provider.ConsumeVerificationCode(ctx, code); err != nil {
		return c.finish(span, OpApplyActionCode, err)
	}

	if started := c.current(); started != nil {
		if err := c.reload(ctx, *started); err != nil {
			c.logger.Warn("Failed to reload principal after verification", zap.Error(err))
		}
	}
	return c.finish(span, OpApplyActionCode, nil)
}

// UpdatePassword re-authenticates with currentPassword before changing it.
// The session survives the change; every other session of the user ends.
func (c *Controller) UpdatePassword(ctx context.Context, currentPassword, newPassword string) error {
	ctx, span := c.begin(ctx, OpUpdatePassword)
	return c.finish(span, OpUpdatePassword, c.updatePassword(ctx, currentPassword, newPassword))
}

func (c *Controller) updatePassword(ctx context.Context, currentPassword, newPassword string) error {
	started := c.current()
	if started == nil {
		return identity.ErrNoCurrentUser
	}
	if err := c.policy.Validate(newPassword); err != nil {
		return err
	}

	if _, err := c.provider.Authenticate(ctx, started.Principal.Email, currentPassword); err != nil {
		if identity.KindOf(err) == identity.KindInvalidCredentials {
			return identity.Wrap(identity.KindWrongCurrentPassword, err)
		}
		return err
	}

	c.commit(func() bool {
		c.rotating = started.SessionID
		return false
	})

	next, err := c.provider.ChangePassword(ctx, *started, newPassword)

	var deferred []identity.StateChange
	applied := false
	c.commit(func() bool {
		c.rotating = ""
		deferred, c.deferred = c.deferred, nil
		if err != nil || c.cred == nil || c.cred.SessionID != started.SessionID {
			return false
		}
		c.cred = &next
		applied = true
		return true
	})
	if applied {
		c.persist(ctx, next)
	}
	for _, change := range deferred {
		c.Notify(change)
	}

	if err != nil {
		c.expireIfRejected(ctx, *started, err)
	}
	return err
}

func (c *Controller) UpdateProfile(ctx context.Context, displayName string) (identity.Principal, error) {
	ctx, span := c.begin(ctx, OpUpdateProfile)

	started := c.current()
	if started == nil {
		return identity.Principal{}, c.finish(span, OpUpdateProfile, identity.ErrNoCurrentUser)
	}

	next, err := c.provider.UpdateProfile(ctx, *started, strings.TrimSpace(displayName))
	if err != nil {
		c.expireIfRejected(ctx, *started, err)
		return identity.Principal{}, c.finish(span, OpUpdateProfile, err)
	}

	c.replaceIfCurrent(ctx, *started, next)
	return next.Principal, c.finish(span, OpUpdateProfile, nil)
}

// RefreshCurrentUser reloads the principal from the provider. It is how
// verification completed on another device becomes visible.
func (c *Controller) RefreshCurrentUser(ctx context.Context) error {
	ctx, span := c.begin(ctx, OpRefresh)

	started := c.current()
	if started == nil {
		return c.finish(span, OpRefresh, identity.ErrNoCurrentUser)
	}
	return c.finish(span, OpRefresh, c.reload(ctx, *started))
}

func (c *Controller) reload(ctx context.Context, started identity.Credential) error {
	next, err := c.provider.ReloadPrincipal(ctx, started)
	if err != nil {
		c.expireIfRejected(ctx, started, err)
		return err
	}
	c.replaceIfCurrent(ctx, started, next)
	return nil
}

// Package identitytest provides an in-memory identity.Provider for tests.
package identitytest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"easemyday/internal/identity"
)

type account struct {
	principal identity.Principal
	password  string
	disabled  bool
}

// Sent is an email the provider would have delivered.
type Sent struct {
	Kind  string
	Email string
	Code  string
}

// Provider keeps accounts and codes in memory. Failures can be forced per
// method with Fail, and calls can be parked with Hold.
type Provider struct {
	mu          sync.Mutex
	accounts    map[string]*account
	resetCodes  map[string]string
	verifyCodes map[string]string
	expired     map[string]bool
	failures    map[string]error
	holds       map[string]chan struct{}
	calls       map[string]int
	sent        []Sent
	next        int
}

func New() *Provider {
	return &Provider{
		accounts:    map[string]*account{},
		resetCodes:  map[string]string{},
		verifyCodes: map[string]string{},
		expired:     map[string]bool{},
		failures:    map[string]error{},
		holds:       map[string]chan struct{}{},
		calls:       map[string]int{},
	}
}

func (p *Provider) id(prefix string) string {
	p.next++
	return fmt.Sprintf("%s-%d", prefix, p.next)
}

// AddAccount registers an account directly.
func (p *Provider) AddAccount(email, password string, verified bool) identity.Principal {
	p.mu.Lock()
	defer p.mu.Unlock()

	principal := identity.Principal{UID: p.id("uid"), Email: email, EmailVerified: verified}
	p.accounts[email] = &account{principal: principal, password: password}
	return principal
}

// SetVerified flips the flag as if the user clicked a link elsewhere.
func (p *Provider) SetVerified(email string, verified bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.accounts[email]; ok {
		a.principal.EmailVerified = verified
	}
}

func (p *Provider) Disable(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.accounts[email]; ok {
		a.disabled = true
	}
}

// Expire makes every later call with the session answer SESSION_EXPIRED.
func (p *Provider) Expire(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired[sessionID] = true
}

// Fail forces method to return err until cleared with a nil err.
func (p *Provider) Fail(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, method)
		return
	}
	p.failures[method] = err
}

// Hold parks every call to method until the returned release is called.
func (p *Provider) Hold(method string) (release func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan struct{})
	p.holds[method] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			if p.holds[method] == ch {
				delete(p.holds, method)
			}
			p.mu.Unlock()
			close(ch)
		})
	}
}

func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

func (p *Provider) Sent() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sent(nil), p.sent...)
}

// LastCode is the most recent code of kind sent to email, or "".
func (p *Provider) LastCode(kind, email string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.sent) - 1; i >= 0; i-- {
		if p.sent[i].Kind == kind && p.sent[i].Email == email {
			return p.sent[i].Code
		}
	}
	return ""
}

func (p *Provider) enter(ctx context.Context, method string) error {
	p.mu.Lock()
	p.calls[method]++
	hold := p.holds[method]
	p.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return identity.Unavailable(ctx.Err())
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures[method]
}

func (p *Provider) credential(a *account) identity.Credential {
	sessionID := p.id("session")
	return identity.Credential{
		Principal: a.principal,
		IDToken:   "token-" + sessionID,
		SessionID: sessionID,
		IssuedAt:  time.Now(),
	}
}

// lookup resolves a credential under the lock.
func (p *Provider) lookup(cred identity.Credential) (*account, error) {
	if cred.IDToken == "" {
		return nil, identity.ErrNoCurrentUser
	}
	if p.expired[cred.SessionID] {
		return nil, identity.ErrSessionExpired
	}
	for _, a := range p.accounts {
		if a.principal.UID == cred.Principal.UID {
			if a.disabled {
				return nil, identity.ErrAccountDisabled
			}
			return a, nil
		}
	}
	return nil, identity.ErrSessionExpired
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (identity.Credential, error) {
	if err := p.enter(ctx, "CreateAccount"); err != nil {
		return identity.Credential{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := p.accounts[email]; ok {
		return identity.Credential{}, identity.ErrEmailAlreadyInUse
	}
	a := &account{principal: identity.Principal{UID: p.id("uid"), Email: email}, password: password}
	p.accounts[email] = a
	return p.credential(a), nil
}

func (p *Provider) Authenticate(ctx context.Context, email, password string) (identity.Credential, error) {
	if err := p.enter(ctx, "Authenticate"); err != nil {
		return identity.Credential{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || a.password != password {
		return identity.Credential{}, identity.ErrInvalidCredentials
	}
	if a.disabled {
		return identity.Credential{}, identity.ErrAccountDisabled
	}
	return p.credential(a), nil
}

func (p *Provider) AuthenticateFederated(ctx context.Context, assertion identity.FederatedAssertion) (identity.Credential, error) {
	if err := p.enter(ctx, "AuthenticateFederated"); err != nil {
		return identity.Credential{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.accounts[assertion.Email]
	if !ok {
		a = &account{principal: identity.Principal{
			UID:           p.id("uid"),
			Email:         assertion.Email,
			DisplayName:   assertion.DisplayName,
			EmailVerified: assertion.EmailVerified,
		}}
		p.accounts[assertion.Email] = a
	}
	return p.credential(a), nil
}

func (p *Provider) EndSession(ctx context.Context, cred identity.Credential) error {
	if err := p.enter(ctx, "EndSession"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired[cred.SessionID] = true
	return nil
}

func (p *Provider) SendPasswordResetMessage(ctx context.Context, email, _ string) error {
	if err := p.enter(ctx, "SendPasswordResetMessage"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.accounts[email]; !ok {
		return nil
	}
	code := p.id("reset")
	p.resetCodes[code] = email
	p.sent = append(p.sent, Sent{Kind: identity.ModeResetPassword, Email: email, Code: code})
	return nil
}

func (p *Provider) ResolveResetCode(ctx context.Context, code string) (string, error) {
	if err := p.enter(ctx, "ResolveResetCode"); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.resetCodes[code]
	if !ok {
		return "", identity.ErrInvalidCode
	}
	return email, nil
}

func (p *Provider) ConsumeResetCode(ctx context.Context, code, newPassword string) error {
	if err := p.enter(ctx, "ConsumeResetCode"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.resetCodes[code]
	if !ok {
		return identity.ErrInvalidCode
	}
	delete(p.resetCodes, code)
	p.accounts[email].password = newPassword
	return nil
}

func (p *Provider) SendVerificationMessage(ctx context.Context, cred identity.Credential, _ string) error {
	if err := p.enter(ctx, "SendVerificationMessage"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.lookup(cred)
	if err != nil {
		return err
	}
	code := p.id("verify")
	p.verifyCodes[code] = a.principal.Email
	p.sent = append(p.sent, Sent{Kind: identity.ModeVerifyEmail, Email: a.principal.Email, Code: code})
	return nil
}

func (p *Provider) ConsumeVerificationCode(ctx context.Context, code string) error {
	if err := p.enter(ctx, "ConsumeVerificationCode"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.verifyCodes[code]
	if !ok {
		return identity.ErrInvalidCode
	}
	delete(p.verifyCodes, code)
	p.accounts[email].principal.EmailVerified = true
	return nil
}

func (p *Provider) ChangePassword(ctx context.Context, cred identity.Credential, newPassword string) (identity.Credential, error) {
	if err := p.enter(ctx, "ChangePassword"); err != nil {
		return identity.Credential{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.lookup(cred)
	if err != nil {
		return identity.Credential{}, err
	}
	a.password = newPassword
	return p.credential(a), nil
}

func (p *Provider) UpdateProfile(ctx context.Context, cred identity.Credential, displayName string) (identity.Credential, error) {
	if err := p.enter(ctx, "UpdateProfile"); err != nil {
		return identity.Credential{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.lookup(cred)
	if err != nil {
		return identity.Credential{}, err
	}
	a.principal.DisplayName = displayName
	cred.Principal = a.principal
	return cred, nil
}

func (p *Provider) ReloadPrincipal(ctx context.Context, cred identity.Credential) (identity.Credential, error) {
	if err := p.enter(ctx, "ReloadPrincipal"); err != nil {
		return identity.Credential{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.lookup(cred)
	if err != nil {
		return identity.Credential{}, err
	}
	cred.Principal = a.principal
	return cred, nil
}

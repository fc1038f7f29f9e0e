package identity

import (
	"context"
	"strings"
	"time"
)

// Principal is the signed-in user as reported by the identity provider.
type Principal struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	EmailVerified bool   `json:"email_verified"`
}

// GreetingName is the display name, or the local part of the email when unset.
func (p Principal) GreetingName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if at := strings.Index(p.Email, "@"); at > 0 {
		return p.Email[:at]
	}
	return p.Email
}

// Credential is what a visitor holds after signing in. SessionID identifies this
// particular sign-in so that provider pushes can spare it.
type Credential struct {
	Principal    Principal `json:"principal"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	SessionID    string    `json:"session_id"`
	IssuedAt     time.Time `json:"issued_at"`
}

// FederatedAssertion is the verified outcome of an external sign-in (OIDC callback).
type FederatedAssertion struct {
	ProviderKey   string
	ProviderID    string
	Subject       string
	Email         string
	EmailVerified bool
	DisplayName   string
	IDToken       string
}

// Provider is the remote identity service. Every failure is returned as an *Error
// whose kind is one of the Kind constants.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (Credential, error)
	Authenticate(ctx context.Context, email, password string) (Credential, error)
	AuthenticateFederated(ctx context.Context, assertion FederatedAssertion) (Credential, error)
	EndSession(ctx context.Context, cred Credential) error

	// SendPasswordResetMessage succeeds for unknown addresses too.
	SendPasswordResetMessage(ctx context.Context, email, redirectURL string) error
	ResolveResetCode(ctx context.Context, code string) (string, error)
	ConsumeResetCode(ctx context.Context, code, newPassword string) error

	SendVerificationMessage(ctx context.Context, cred Credential, redirectURL string) error
	ConsumeVerificationCode(ctx context.Context, code string) error

	// ChangePassword expects the caller to have re-authenticated. It returns the
	// credential that replaces cred.
	ChangePassword(ctx context.Context, cred Credential, newPassword string) (Credential, error)
	UpdateProfile(ctx context.Context, cred Credential, displayName string) (Credential, error)
	ReloadPrincipal(ctx context.Context, cred Credential) (Credential, error)
}

type ChangeKind string

const (
	ChangeSignedOut ChangeKind = "signed_out"
	ChangeUpdated   ChangeKind = "updated"
)

// StateChange is pushed by the provider when a principal changes outside of
// the session that observes it.
type StateChange struct {
	Kind        ChangeKind `json:"kind"`
	UID         string     `json:"uid"`
	Principal   *Principal `json:"principal,omitempty"`
	KeepSession string     `json:"keep_session,omitempty"`
	At          time.Time  `json:"at"`
}

// StateFeed carries StateChange notifications between the provider and the
// session controllers. Subscriptions end when ctx is cancelled.
type StateFeed interface {
	Publish(change StateChange) error
	Subscribe(ctx context.Context) (<-chan StateChange, error)
}

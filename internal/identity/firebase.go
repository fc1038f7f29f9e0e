package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"easemyday/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// FirebaseProvider talks to the Identity Toolkit and Secure Token REST APIs.
// Firebase delivers the emails itself, so the project's action handler URL
// must point at the dispatcher.
type FirebaseProvider struct {
	client   *resty.Client
	tokenURL string
	webURL   string
}

func NewFirebaseProvider(config models.FirebaseIdentityConfiguration, webURL string) *FirebaseProvider {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(config.BaseURL, "/")).
		SetTimeout(time.Duration(config.Timeout)*time.Second).
		SetQueryParam("key", config.APIKey)

	return &FirebaseProvider{client: client, tokenURL: config.TokenURL, webURL: webURL}
}

type firebaseErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type firebaseAuthResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
}

type firebaseUser struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
	Disabled      bool   `json:"disabled"`
}

type firebaseLookupResponse struct {
	Users []firebaseUser `json:"users"`
}

type firebaseOobResponse struct {
	Email       string `json:"email"`
	RequestType string `json:"requestType"`
}

type firebaseTokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

var firebaseErrorKinds = map[string]Kind{
	"EMAIL_EXISTS":                   KindEmailAlreadyInUse,
	"INVALID_EMAIL":                  KindInvalidEmail,
	"MISSING_EMAIL":                  KindInvalidEmail,
	"WEAK_PASSWORD":                  KindWeakPassword,
	"EMAIL_NOT_FOUND":                KindInvalidCredentials,
	"INVALID_PASSWORD":               KindInvalidCredentials,
	"INVALID_LOGIN_CREDENTIALS":      KindInvalidCredentials,
	"USER_DISABLED":                  KindAccountDisabled,
	"EXPIRED_OOB_CODE":               KindExpiredCode,
	"INVALID_OOB_CODE":               KindInvalidCode,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    KindRateLimited,
	"TOKEN_EXPIRED":                  KindSessionExpired,
	"INVALID_ID_TOKEN":               KindSessionExpired,
	"USER_NOT_FOUND":                 KindSessionExpired,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": KindSessionExpired,
	"INVALID_REFRESH_TOKEN":          KindSessionExpired,
}

// mapFirebaseError classifies an error response. Messages may carry a detail
// suffix such as "WEAK_PASSWORD : Password should be at least 6 characters".
func mapFirebaseError(status int, body *firebaseErrorBody) error {
	message := ""
	if body != nil {
		message = body.Error.Message
	}
	code, _, _ := strings.Cut(message, " ")

	if kind, ok := firebaseErrorKinds[code]; ok {
		return Wrap(kind, fmt.Errorf("firebase: %s", message))
	}
	return Unavailable(fmt.Errorf("firebase: status %d: %s", status, message))
}

func (p *FirebaseProvider) call(ctx context.Context, endpoint string, body any, result any) error {
	var errBody firebaseErrorBody
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&errBody).
		Post(endpoint)
	if err != nil {
		return Unavailable(err)
	}
	if resp.IsError() {
		return mapFirebaseError(resp.StatusCode(), &errBody)
	}
	return nil
}

func (p *FirebaseProvider) credentialFrom(resp firebaseAuthResponse) Credential {
	return Credential{
		Principal: Principal{
			UID:           resp.LocalID,
			Email:         resp.Email,
			DisplayName:   resp.DisplayName,
			EmailVerified: resp.EmailVerified,
		},
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		SessionID:    uuid.NewString(),
		IssuedAt:     time.Now(),
	}
}

func (p *FirebaseProvider) CreateAccount(ctx context.Context, email, password string) (Credential, error) {
	var resp firebaseAuthResponse
	err := p.call(ctx, "/accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return Credential{}, err
	}
	return p.credentialFrom(resp), nil
}

func (p *FirebaseProvider) Authenticate(ctx context.Context, email, password string) (Credential, error) {
	var resp firebaseAuthResponse
	err := p.call(ctx, "/accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return Credential{}, err
	}

	// signInWithPassword does not report the verification flag.
	return p.ReloadPrincipal(ctx, p.credentialFrom(resp))
}

func (p *FirebaseProvider) AuthenticateFederated(ctx context.Context, assertion FederatedAssertion) (Credential, error) {
	if assertion.ProviderID == "" {
		return Credential{}, Unavailable(fmt.Errorf("provider %s has no firebase provider id", assertion.ProviderKey))
	}

	postBody := url.Values{}
	postBody.Set("id_token", assertion.IDToken)
	postBody.Set("providerId", assertion.ProviderID)

	var resp firebaseAuthResponse
	err := p.call(ctx, "/accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          p.webURL,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return Credential{}, err
	}
	return p.credentialFrom(resp), nil
}

// EndSession is local only: the REST API cannot revoke a single ID token.
func (p *FirebaseProvider) EndSession(context.Context, Credential) error {
	return nil
}

// oobRequest builds a sendOobCode body. The emailed link itself comes from the
// project's action URL template, which must point at the /auth/action
// endpoint; continueUrl is carried along so the project can check the domain.
func oobRequest(requestType, redirectURL string, fields map[string]any) map[string]any {
	fields["requestType"] = requestType
	if redirectURL != "" {
		fields["continueUrl"] = redirectURL
	}
	return fields
}

func (p *FirebaseProvider) SendPasswordResetMessage(ctx context.Context, email, redirectURL string) error {
	var resp firebaseOobResponse
	err := p.call(ctx, "/accounts:sendOobCode",
		oobRequest("PASSWORD_RESET", redirectURL, map[string]any{"email": email}), &resp)
	if KindOf(err) == KindInvalidCredentials {
		// EMAIL_NOT_FOUND must not tell callers whether the address is registered.
		return nil
	}
	return err
}

func (p *FirebaseProvider) ResolveResetCode(ctx context.Context, code string) (string, error) {
	var resp firebaseOobResponse
	if err := p.call(ctx, "/accounts:resetPassword", map[string]any{"oobCode": code}, &resp); err != nil {
		return "", err
	}
	return resp.Email, nil
}

func (p *FirebaseProvider) ConsumeResetCode(ctx context.Context, code, newPassword string) error {
	var resp firebaseOobResponse
	return p.call(ctx, "/accounts:resetPassword", map[string]any{
		"oobCode":     code,
		"newPassword": newPassword,
	}, &resp)
}

func (p *FirebaseProvider) SendVerificationMessage(ctx context.Context, cred Credential, redirectURL string) error {
	if cred.IDToken == "" {
		return ErrNoCurrentUser
	}
	var resp firebaseOobResponse
	return p.call(ctx, "/accounts:sendOobCode",
		oobRequest("VERIFY_EMAIL", redirectURL, map[string]any{"idToken": cred.IDToken}), &resp)
}

func (p *FirebaseProvider) ConsumeVerificationCode(ctx context.Context, code string) error {
	var resp firebaseAuthResponse
	return p.call(ctx, "/accounts:update", map[string]any{"oobCode": code}, &resp)
}

func (p *FirebaseProvider) ChangePassword(ctx context.Context, cred Credential, newPassword string) (Credential, error) {
	if cred.IDToken == "" {
		return Credential{}, ErrNoCurrentUser
	}

	var resp firebaseAuthResponse
	err := p.call(ctx, "/accounts:update", map[string]any{
		"idToken":           cred.IDToken,
		"password":          newPassword,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return Credential{}, err
	}

	next := p.credentialFrom(resp)
	next.Principal.EmailVerified = cred.Principal.EmailVerified
	if next.Principal.DisplayName == "" {
		next.Principal.DisplayName = cred.Principal.DisplayName
	}
	return next, nil
}

func (p *FirebaseProvider) UpdateProfile(ctx context.Context, cred Credential, displayName string) (Credential, error) {
	if cred.IDToken == "" {
		return Credential{}, ErrNoCurrentUser
	}

	var resp firebaseAuthResponse
	err := p.call(ctx, "/accounts:update", map[string]any{
		"idToken":           cred.IDToken,
		"displayName":       displayName,
		"returnSecureToken": false,
	}, &resp)
	if err != nil {
		return Credential{}, err
	}

	cred.Principal.DisplayName = resp.DisplayName
	return cred, nil
}

func (p *FirebaseProvider) lookup(ctx context.Context, idToken string) (firebaseUser, error) {
	var resp firebaseLookupResponse
	if err := p.call(ctx, "/accounts:lookup", map[string]any{"idToken": idToken}, &resp); err != nil {
		return firebaseUser{}, err
	}
	if len(resp.Users) == 0 {
		return firebaseUser{}, Wrap(KindSessionExpired, errors.New("firebase: lookup returned no user"))
	}
	return resp.Users[0], nil
}

func (p *FirebaseProvider) refresh(ctx context.Context, cred Credential) (Credential, error) {
	var resp firebaseTokenResponse
	var errBody firebaseErrorBody
	result, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": cred.RefreshToken,
		}).
		SetResult(&resp).
		SetError(&errBody).
		Post(p.tokenURL)
	if err != nil {
		return Credential{}, Unavailable(err)
	}
	if result.IsError() {
		return Credential{}, mapFirebaseError(result.StatusCode(), &errBody)
	}

	cred.IDToken = resp.IDToken
	cred.RefreshToken = resp.RefreshToken
	return cred, nil
}

// ReloadPrincipal looks the principal up again. An expired ID token is
// refreshed once with the refresh token.
func (p *FirebaseProvider) ReloadPrincipal(ctx context.Context, cred Credential) (Credential, error) {
	if cred.IDToken == "" {
		return Credential{}, ErrNoCurrentUser
	}

	user, err := p.lookup(ctx, cred.IDToken)
	if KindOf(err) == KindSessionExpired && cred.RefreshToken != "" {
		cred, err = p.refresh(ctx, cred)
		if err != nil {
			return Credential{}, err
		}
		user, err = p.lookup(ctx, cred.IDToken)
	}
	if err != nil {
		return Credential{}, err
	}
	if user.Disabled {
		return Credential{}, ErrAccountDisabled
	}

	cred.Principal = Principal{
		UID:           user.LocalID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		EmailVerified: user.EmailVerified,
	}
	return cred, nil
}

var _ Provider = (*FirebaseProvider)(nil)

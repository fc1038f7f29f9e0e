package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"easemyday/internal/cache"
	"easemyday/internal/configuration"
	"easemyday/internal/events"
	h "easemyday/internal/helpers"
	"easemyday/internal/messaging"
	"easemyday/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ModeResetPassword = "resetPassword"
	ModeVerifyEmail   = "verifyEmail"
	ModeRecoverEmail  = "recoverEmail"
)

// LocalProvider is the self-hosted identity service: accounts and action codes
// live in the relational store, credentials are HS256 JWTs and emails go out
// through the notifications topic.
type LocalProvider struct {
	DB        *gorm.DB
	Cache     cache.ICache
	Publisher messaging.IPublisher
	Feed      StateFeed
	Policy    PasswordPolicy
	Config    models.LocalIdentityConfiguration
	WebURL    string

	now func() time.Time
}

func NewLocalProvider(
	db *gorm.DB,
	c cache.ICache,
	publisher messaging.IPublisher,
	feed StateFeed,
	policy PasswordPolicy,
	config models.LocalIdentityConfiguration,
	webURL string,
) *LocalProvider {
	return &LocalProvider{
		DB:        db,
		Cache:     c,
		Publisher: publisher,
		Feed:      feed,
		Policy:    policy,
		Config:    config,
		WebURL:    webURL,
		now:       time.Now,
	}
}

type sessionClaims struct {
	UserID     string `json:"uid"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func principalOf(user models.User) Principal {
	return Principal{
		UID:           user.ID.String(),
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		EmailVerified: user.EmailVerified,
	}
}

func (p *LocalProvider) tokenExpiry() time.Duration {
	return time.Duration(p.Config.TokenExpiry) * time.Hour
}

func (p *LocalProvider) issue(user models.User) (Credential, error) {
	now := p.now()
	sessionID := uuid.NewString()

	claims := sessionClaims{
		UserID:     user.ID.String(),
		Generation: user.SessionGeneration,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    configuration.AppName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenExpiry())),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.Config.JWTSecret))
	if err != nil {
		return Credential{}, Unavailable(fmt.Errorf("failed to sign credential: %w", err))
	}

	return Credential{
		Principal: principalOf(user),
		IDToken:   token,
		SessionID: sessionID,
		IssuedAt:  now,
	}, nil
}

func (p *LocalProvider) revokedKey(sessionID string) string {
	return "revoked:session:" + sessionID
}

// verify resolves a credential to its user. Any credential that is expired,
// revoked or from an older session generation answers SESSION_EXPIRED.
func (p *LocalProvider) verify(ctx context.Context, cred Credential) (models.User, error) {
	if cred.IDToken == "" {
		return models.User{}, ErrNoCurrentUser
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(
		cred.IDToken,
		&claims,
		func(_ *jwt.Token) (any, error) { return []byte(p.Config.JWTSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return models.User{}, Wrap(KindSessionExpired, err)
	}

	if _, err = p.Cache.GetValue(ctx, p.revokedKey(claims.ID)); err == nil {
		return models.User{}, Wrap(KindSessionExpired, errors.New("session was ended"))
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		return models.User{}, Unavailable(err)
	}

	var user models.User
	result := p.DB.WithContext(ctx).Where("id = ?", claims.UserID).Limit(1).Find(&user)
	if result.Error != nil {
		return models.User{}, Unavailable(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.User{}, Wrap(KindSessionExpired, errors.New("user no longer exists"))
	}
	if user.SessionGeneration != claims.Generation {
		return models.User{}, Wrap(KindSessionExpired, errors.New("session generation changed"))
	}
	if user.Disabled {
		return models.User{}, ErrAccountDisabled
	}
	return user, nil
}

func (p *LocalProvider) findByEmail(ctx context.Context, email string) (models.User, bool, error) {
	var user models.User
	result := p.DB.WithContext(ctx).Where("email = ?", email).Limit(1).Find(&user)
	if result.Error != nil {
		return models.User{}, false, Unavailable(result.Error)
	}
	return user, result.RowsAffected > 0, nil
}

func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (Credential, error) {
	email = normalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return Credential{}, err
	}
	if err := p.Policy.Validate(password); err != nil {
		return Credential{}, err
	}

	_, exists, err := p.findByEmail(ctx, email)
	if err != nil {
		return Credential{}, err
	}
	if exists {
		return Credential{}, ErrEmailAlreadyInUse
	}

	hash, err := h.CreateHash(password)
	if err != nil {
		return Credential{}, Unavailable(err)
	}

	user := models.User{
		Email:             email,
		HashedPassword:    hash,
		ProviderType:      models.LocalProviderType,
		ProviderKey:       string(models.LocalProviderType),
		SessionGeneration: 1,
	}
	if err = p.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Credential{}, ErrEmailAlreadyInUse
		}
		return Credential{}, Unavailable(err)
	}

	return p.issue(user)
}

func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (Credential, error) {
	user, exists, err := p.findByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return Credential{}, err
	}
	if !exists || !h.CompareHash(password, user.HashedPassword) {
		return Credential{}, ErrInvalidCredentials
	}
	if user.Disabled {
		return Credential{}, ErrAccountDisabled
	}
	return p.issue(user)
}

// AuthenticateFederated signs in or registers the owner of a verified external
// identity. An existing account with the same address is linked only when the
// external provider vouches for the address.
func (p *LocalProvider) AuthenticateFederated(ctx context.Context, assertion FederatedAssertion) (Credential, error) {
	email := normalizeEmail(assertion.Email)
	if err := ValidateEmail(email); err != nil {
		return Credential{}, err
	}

	user, exists, err := p.findByEmail(ctx, email)
	if err != nil {
		return Credential{}, err
	}

	if !exists {
		user = models.User{
			Email:             email,
			DisplayName:       assertion.DisplayName,
			EmailVerified:     assertion.EmailVerified,
			ProviderType:      models.OIDCProviderType,
			ProviderKey:       assertion.ProviderKey,
			SessionGeneration: 1,
		}
		if err = p.DB.WithContext(ctx).Create(&user).Error; err != nil {
			return Credential{}, Unavailable(err)
		}
		return p.issue(user)
	}

	if user.Disabled {
		return Credential{}, ErrAccountDisabled
	}
	if user.ProviderKey != assertion.ProviderKey && !assertion.EmailVerified {
		return Credential{}, ErrEmailAlreadyInUse
	}

	if assertion.EmailVerified && !user.EmailVerified {
		user.EmailVerified = true
		if err = p.DB.WithContext(ctx).Model(&user).Update("email_verified", true).Error; err != nil {
			return Credential{}, Unavailable(err)
		}
	}
	return p.issue(user)
}

// EndSession revokes this credential until it would have expired anyway.
func (p *LocalProvider) EndSession(ctx context.Context, cred Credential) error {
	var claims sessionClaims
	_, _, err := jwt.NewParser().ParseUnverified(cred.IDToken, &claims)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	remaining := claims.ExpiresAt.Sub(p.now())
	if remaining <= 0 {
		return nil
	}
	if err = p.Cache.SetValue(ctx, p.revokedKey(claims.ID), []byte(claims.UserID), remaining); err != nil {
		return Unavailable(err)
	}
	return nil
}

func actionLink(redirectURL, mode, code string) string {
	values := url.Values{}
	values.Set("mode", mode)
	values.Set("oobCode", code)
	return redirectURL + "?" + values.Encode()
}

// newActionCode replaces any outstanding code of the same type for the user.
func (p *LocalProvider) newActionCode(
	ctx context.Context,
	user models.User,
	codeType models.ActionCodeType,
	ttl time.Duration,
) (string, error) {
	secret, err := h.GenerateSecret(configuration.ActionCodeSecretLength)
	if err != nil {
		return "", Unavailable(err)
	}
	hashedSecret, err := h.CreateHash(secret)
	if err != nil {
		return "", Unavailable(err)
	}

	code := models.ActionCode{
		Type:         codeType,
		UserID:       user.ID,
		HashedSecret: hashedSecret,
		ExpiresAt:    p.now().Add(ttl),
		AttemptsLeft: configuration.ActionCodeMaxAttempts,
	}

	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND type = ?", user.ID, codeType).Delete(&models.ActionCode{}).Error; err != nil {
			return err
		}
		return tx.Create(&code).Error
	})
	if err != nil {
		return "", Unavailable(err)
	}

	return code.ID.String() + "." + secret, nil
}

// checkCode runs inside a transaction. Domain failures are returned as outcome
// so that attempt accounting is committed; err is reserved for store failures.
func (p *LocalProvider) checkCode(
	tx *gorm.DB,
	raw string,
	codeType models.ActionCodeType,
) (code models.ActionCode, outcome error, err error) {
	id, secret, found := strings.Cut(raw, ".")
	codeID, parseErr := uuid.Parse(id)
	if !found || parseErr != nil || secret == "" {
		return code, ErrInvalidCode, nil
	}

	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("User").
		Where("id = ? AND type = ?", codeID, codeType).
		Limit(1).
		Find(&code)
	if result.Error != nil {
		return code, nil, result.Error
	}
	if result.RowsAffected == 0 {
		return code, ErrInvalidCode, nil
	}

	if !p.now().Before(code.ExpiresAt) {
		if err = tx.Delete(&code).Error; err != nil {
			return code, nil, err
		}
		return code, ErrExpiredCode, nil
	}

	if !h.CompareHash(secret, code.HashedSecret) {
		code.AttemptsLeft--
		if code.AttemptsLeft <= 0 {
			zap.L().Warn("Action code deleted after too many failed attempts",
				zap.String("code_id", code.ID.String()),
				zap.String("type", string(code.Type)))
			err = tx.Delete(&code).Error
		} else {
			err = tx.Model(&code).Update("attempts_left", code.AttemptsLeft).Error
		}
		if err != nil {
			return code, nil, err
		}
		return code, ErrInvalidCode, nil
	}

	if code.User.Disabled {
		return code, ErrAccountDisabled, nil
	}
	return code, nil, nil
}

// withCode checks raw and, when it is valid, runs apply in the same
// transaction. apply is responsible for consuming the code when it should.
func (p *LocalProvider) withCode(
	ctx context.Context,
	raw string,
	codeType models.ActionCodeType,
	apply func(tx *gorm.DB, code models.ActionCode) error,
) (models.ActionCode, error) {
	var code models.ActionCode
	var outcome error

	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		code, outcome, err = p.checkCode(tx, raw, codeType)
		if err != nil || outcome != nil {
			return err
		}
		return apply(tx, code)
	})
	if err != nil {
		return code, Unavailable(err)
	}
	return code, outcome
}

func consume(tx *gorm.DB, code models.ActionCode) error {
	result := tx.Delete(&models.ActionCode{}, "id = ?", code.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("action code consumed concurrently")
	}
	return nil
}

func (p *LocalProvider) SendPasswordResetMessage(ctx context.Context, email, redirectURL string) error {
	user, exists, err := p.findByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if !exists || user.HashedPassword == "" || user.Disabled {
		return nil
	}

	ttl := time.Duration(p.Config.ResetCodeExpiry) * time.Minute
	code, err := p.newActionCode(ctx, user, models.ActionCodePasswordReset, ttl)
	if err != nil {
		return err
	}

	event := events.NewPasswordReset(p.Publisher, user.Email, actionLink(redirectURL, ModeResetPassword, code), p.WebURL, ttl)
	if err = event.Send(); err != nil {
		return Unavailable(err)
	}
	return nil
}

func (p *LocalProvider) ResolveResetCode(ctx context.Context, code string) (string, error) {
	actionCode, err := p.withCode(ctx, code, models.ActionCodePasswordReset, func(*gorm.DB, models.ActionCode) error {
		return nil
	})
	if err != nil {
		return "", err
	}
	return actionCode.User.Email, nil
}

func (p *LocalProvider) ConsumeResetCode(ctx context.Context, code, newPassword string) error {
	if err := p.Policy.Validate(newPassword); err != nil {
		return err
	}
	hash, err := h.CreateHash(newPassword)
	if err != nil {
		return Unavailable(err)
	}

	actionCode, err := p.withCode(ctx, code, models.ActionCodePasswordReset, func(tx *gorm.DB, code models.ActionCode) error {
		if err := consume(tx, code); err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", code.UserID).Updates(map[string]any{
			"hashed_password":    hash,
			"session_generation": gorm.Expr("session_generation + 1"),
		}).Error
	})
	if err != nil {
		return err
	}

	p.publish(StateChange{Kind: ChangeSignedOut, UID: actionCode.UserID.String()})
	events.NewPasswordChanged(p.Publisher, actionCode.User.Email, p.WebURL, p.now()).Trigger()
	return nil
}

func (p *LocalProvider) SendVerificationMessage(ctx context.Context, cred Credential, redirectURL string) error {
	user, err := p.verify(ctx, cred)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}

	cooldown := time.Duration(p.Config.ResendCooldown) * time.Second
	cooldownKey := fmt.Sprintf(configuration.CacheVerificationCooldown, user.ID.String())
	if cooldown > 0 {
		remaining, err := p.Cache.StartCooldown(ctx, cooldownKey, cooldown)
		if err != nil {
			return Unavailable(err)
		}
		if remaining > 0 {
			return Wrap(KindRateLimited, fmt.Errorf("retry in %s", remaining.Round(time.Second)))
		}
	}

	// Nothing went out, so the window is released for the retry.
	releaseCooldown := func() {
		if cooldown <= 0 {
			return
		}
		if err := p.Cache.DeleteValue(ctx, cooldownKey); err != nil {
			zap.L().Warn("Failed to release verification cooldown", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	ttl := time.Duration(p.Config.VerifyCodeExpiry) * time.Hour
	code, err := p.newActionCode(ctx, user, models.ActionCodeVerifyEmail, ttl)
	if err != nil {
		releaseCooldown()
		return err
	}

	event := events.NewVerifyEmail(
		p.Publisher,
		user.Email,
		principalOf(user).GreetingName(),
		actionLink(redirectURL, ModeVerifyEmail, code),
		p.WebURL,
		ttl,
	)
	if err = event.Send(); err != nil {
		releaseCooldown()
		return Unavailable(err)
	}
	return nil
}

func (p *LocalProvider) ConsumeVerificationCode(ctx context.Context, code string) error {
	actionCode, err := p.withCode(ctx, code, models.ActionCodeVerifyEmail, func(tx *gorm.DB, code models.ActionCode) error {
		if err := consume(tx, code); err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", code.UserID).Update("email_verified", true).Error
	})
	if err != nil {
		return err
	}

	user := actionCode.User
	user.EmailVerified = true
	principal := principalOf(user)
	p.publish(StateChange{Kind: ChangeUpdated, UID: principal.UID, Principal: &principal})
	return nil
}

func (p *LocalProvider) ChangePassword(ctx context.Context, cred Credential, newPassword string) (Credential, error) {
	user, err := p.verify(ctx, cred)
	if err != nil {
		return Credential{}, err
	}
	if err = p.Policy.Validate(newPassword); err != nil {
		return Credential{}, err
	}

	hash, err := h.CreateHash(newPassword)
	if err != nil {
		return Credential{}, Unavailable(err)
	}

	user.HashedPassword = hash
	user.SessionGeneration++
	err = p.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"hashed_password":    user.HashedPassword,
		"session_generation": user.SessionGeneration,
	}).Error
	if err != nil {
		return Credential{}, Unavailable(err)
	}

	next, err := p.issue(user)
	if err != nil {
		return Credential{}, err
	}

	p.publish(StateChange{Kind: ChangeSignedOut, UID: next.Principal.UID, KeepSession: next.SessionID})
	events.NewPasswordChanged(p.Publisher, user.Email, p.WebURL, p.now()).Trigger()
	return next, nil
}

func (p *LocalProvider) UpdateProfile(ctx context.Context, cred Credential, displayName string) (Credential, error) {
	user, err := p.verify(ctx, cred)
	if err != nil {
		return Credential{}, err
	}

	user.DisplayName = strings.TrimSpace(displayName)
	if err = p.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Update("display_name", user.DisplayName).Error; err != nil {
		return Credential{}, Unavailable(err)
	}

	cred.Principal = principalOf(user)
	p.publish(StateChange{Kind: ChangeUpdated, UID: cred.Principal.UID, Principal: &cred.Principal})
	return cred, nil
}

func (p *LocalProvider) ReloadPrincipal(ctx context.Context, cred Credential) (Credential, error) {
	user, err := p.verify(ctx, cred)
	if err != nil {
		return Credential{}, err
	}
	cred.Principal = principalOf(user)
	return cred, nil
}

func (p *LocalProvider) publish(change StateChange) {
	if p.Feed == nil {
		return
	}
	if change.At.IsZero() {
		change.At = p.now()
	}
	if err := p.Feed.Publish(change); err != nil {
		zap.L().Error("Failed to publish identity state change",
			zap.String("kind", string(change.Kind)),
			zap.String("uid", change.UID),
			zap.Error(err))
	}
}

var _ Provider = (*LocalProvider)(nil)

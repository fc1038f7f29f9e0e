package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"easemyday/internal/cache"
	"easemyday/internal/configuration"
	"easemyday/internal/identity"
)

// CredentialStore keeps a visitor's credential across controller restarts,
// so that a returning visitor is restored instead of signed out.
type CredentialStore interface {
	// Load returns nil when the visitor holds no credential.
	Load(ctx context.Context, visitorID string) (*identity.Credential, error)
	Save(ctx context.Context, visitorID string, cred identity.Credential) error
	Delete(ctx context.Context, visitorID string) error
}

type CacheCredentialStore struct {
	Cache cache.ICache
	TTL   time.Duration
}

func NewCacheCredentialStore(c cache.ICache, ttl time.Duration) *CacheCredentialStore {
	return &CacheCredentialStore{Cache: c, TTL: ttl}
}

func credentialKey(visitorID string) string {
	return fmt.Sprintf(configuration.CacheVisitorCredentialKey, visitorID)
}

func (s *CacheCredentialStore) Load(ctx context.Context, visitorID string) (*identity.Credential, error) {
	raw, err := s.Cache.GetValue(ctx, credentialKey(visitorID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cred identity.Credential
	if err = json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode stored credential: %w", err)
	}
	return &cred, nil
}

func (s *CacheCredentialStore) Save(ctx context.Context, visitorID string, cred identity.Credential) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	return s.Cache.SetValue(ctx, credentialKey(visitorID), raw, s.TTL)
}

func (s *CacheCredentialStore) Delete(ctx context.Context, visitorID string) error {
	return s.Cache.DeleteValue(ctx, credentialKey(visitorID))
}

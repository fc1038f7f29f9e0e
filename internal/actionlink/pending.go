package actionlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"easemyday/internal/cache"
	"easemyday/internal/configuration"
)

// ActionRequest is the code an inbound link carried, kept until the screen
// that handles its mode consumes it.
type ActionRequest struct {
	Mode     string    `json:"mode"`
	Code     string    `json:"code"`
	StoredAt time.Time `json:"stored_at"`
}

// PendingStore is the single pending-action slot of each visitor.
type PendingStore struct {
	Cache cache.ICache
	TTL   time.Duration
}

func NewPendingStore(c cache.ICache, ttl time.Duration) *PendingStore {
	return &PendingStore{Cache: c, TTL: ttl}
}

func pendingKey(visitorID string) string {
	return fmt.Sprintf(configuration.CachePendingActionKey, visitorID)
}

// Put replaces the visitor's slot.
func (s *PendingStore) Put(ctx context.Context, visitorID string, req ActionRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode pending action: %w", err)
	}
	return s.Cache.SetValue(ctx, pendingKey(visitorID), payload, s.TTL)
}

// Get returns nil when the slot is empty or expired.
func (s *PendingStore) Get(ctx context.Context, visitorID string) (*ActionRequest, error) {
	payload, err := s.Cache.GetValue(ctx, pendingKey(visitorID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var req ActionRequest
	if err = json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to decode pending action: %w", err)
	}
	return &req, nil
}

func (s *PendingStore) Clear(ctx context.Context, visitorID string) error {
	return s.Cache.DeleteValue(ctx, pendingKey(visitorID))
}

package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"easemyday/internal/cache"
	"easemyday/internal/identity"
	"easemyday/internal/identity/identitytest"
	"easemyday/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingScreen struct {
	closed atomic.Bool
}

func (s *closingScreen) Close() {
	s.closed.Store(true)
}

func newTestManager(t *testing.T) (*Manager, *identitytest.Provider) {
	t.Helper()
	provider := identitytest.New()
	m := NewManager(context.Background(), options(provider, NewCacheCredentialStore(cache.NewMemoryCache(), time.Hour)))
	t.Cleanup(m.Close)
	return m, provider
}

func ready(t *testing.T, v *Visitor) {
	t.Helper()
	select {
	case <-v.Controller.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not resolve its initial state")
	}
}

func TestManagerGet(t *testing.T) {
	m, _ := newTestManager(t)

	first := m.Get("visitor-1")
	assert.Same(t, first, m.Get("visitor-1"))
	assert.NotSame(t, first, m.Get("visitor-2"))
	assert.Equal(t, 2, m.Len())

	_, ok := m.Lookup("visitor-3")
	assert.False(t, ok)
}

func TestVisitorMountClosesPreviousScreen(t *testing.T) {
	m, _ := newTestManager(t)
	v := m.Get("visitor-1")

	previous := &closingScreen{}
	v.Mount("reset", previous)
	v.Mount("reset", &closingScreen{})
	assert.True(t, previous.closed.Load())

	screen, ok := v.Screen("reset")
	require.True(t, ok)
	assert.False(t, screen.(*closingScreen).closed.Load())

	v.Unmount("reset")
	_, ok = v.Screen("reset")
	assert.False(t, ok)
	assert.True(t, screen.(*closingScreen).closed.Load())
}

func TestManagerSweep(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle := m.Get("idle")
	screen := &closingScreen{}
	idle.Mount("verify", screen)

	now = now.Add(20 * time.Minute)
	m.Get("active")

	assert.Equal(t, 1, m.Sweep(10*time.Minute))
	assert.Equal(t, 1, m.Len())
	assert.True(t, screen.closed.Load())

	select {
	case <-idle.Controller.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("swept controller is still running")
	}
}

func TestManagerRoutesChangesByUID(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, provider := newTestManager(t)
	provider.AddAccount(testEmail, testPassword, true)
	provider.AddAccount("grace@uni.edu", testPassword, true)

	channel := messaging.NewMemoryChannel()
	feed := identity.NewEventFeed(
		messaging.NewMemoryPublisher(channel, "identity_state"),
		messaging.NewMemorySubscriber(channel, "identity_state"),
	)
	go func() { _ = m.Run(ctx, feed) }()

	ada := m.Get("visitor-ada")
	grace := m.Get("visitor-grace")
	ready(t, ada)
	ready(t, grace)

	principal, err := ada.Controller.LogIn(ctx, testEmail, testPassword)
	require.NoError(t, err)
	_, err = grace.Controller.LogIn(ctx, "grace@uni.edu", testPassword)
	require.NoError(t, err)

	// The subscription is asynchronous, so keep publishing until it lands.
	require.Eventually(t, func() bool {
		_ = feed.Publish(identity.StateChange{Kind: identity.ChangeSignedOut, UID: principal.UID})
		return ada.Controller.State().User == nil
	}, 2*time.Second, 20*time.Millisecond)

	assert.NotNil(t, grace.Controller.State().User)
}

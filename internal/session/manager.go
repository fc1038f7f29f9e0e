package session

import (
	"context"
	"sync"
	"time"

	"easemyday/internal/identity"
	"easemyday/internal/metrics"

	"go.uber.org/zap"
)

// Screen is a mounted per-visitor flow. Closing it discards any result that
// is still in flight.
type Screen interface {
	Close()
}

// Visitor is one browser identified by its visitor cookie.
type Visitor struct {
	ID         string
	Controller *Controller

	mu       sync.Mutex
	screens  map[string]Screen
	lastSeen time.Time
	cancel   context.CancelFunc
}

// Mount replaces the screen registered under name, closing the previous one.
func (v *Visitor) Mount(name string, screen Screen) {
	v.mu.Lock()
	previous := v.screens[name]
	v.screens[name] = screen
	v.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
}

func (v *Visitor) Screen(name string) (Screen, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	screen, ok := v.screens[name]
	return screen, ok
}

func (v *Visitor) Unmount(name string) {
	v.mu.Lock()
	screen := v.screens[name]
	delete(v.screens, name)
	v.mu.Unlock()

	if screen != nil {
		screen.Close()
	}
}

func (v *Visitor) close() {
	v.mu.Lock()
	screens := v.screens
	v.screens = map[string]Screen{}
	v.mu.Unlock()

	for _, screen := range screens {
		screen.Close()
	}
	v.cancel()
}

// Manager owns the controllers of every live visitor and routes provider
// pushes to the ones signed in as the affected user.
type Manager struct {
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	visitors map[string]*Visitor
}

func NewManager(ctx context.Context, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		visitors: map[string]*Visitor{},
	}
}

// Get returns the visitor, starting its controller on first use.
func (m *Manager) Get(visitorID string) *Visitor {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.visitors[visitorID]; ok {
		v.mu.Lock()
		v.lastSeen = m.now()
		v.mu.Unlock()
		return v
	}

	ctx, cancel := context.WithCancel(m.ctx)
	v := &Visitor{
		ID:         visitorID,
		Controller: NewController(visitorID, m.opts),
		screens:    map[string]Screen{},
		lastSeen:   m.now(),
		cancel:     cancel,
	}
	go v.Controller.Run(ctx)

	m.visitors[visitorID] = v
	m.metrics.SetActiveVisitors(len(m.visitors))
	return v
}

func (m *Manager) Lookup(visitorID string) (*Visitor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visitors[visitorID]
	return v, ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}

// Run forwards provider pushes until ctx is cancelled or the feed ends.
func (m *Manager) Run(ctx context.Context, feed identity.StateFeed) error {
	changes, err := feed.Subscribe(ctx)
	if err != nil {
		return err
	}

	for change := range changes {
		m.dispatch(change)
	}
	return nil
}

func (m *Manager) dispatch(change identity.StateChange) {
	m.mu.Lock()
	targets := make([]*Controller, 0, 1)
	for _, v := range m.visitors {
		if v.Controller.UID() == change.UID {
			targets = append(targets, v.Controller)
		}
	}
	m.mu.Unlock()

	m.logger.Debug("Dispatching identity state change",
		zap.String("kind", string(change.Kind)),
		zap.String("uid", change.UID),
		zap.Int("sessions", len(targets)))

	for _, c := range targets {
		c.Notify(change)
	}
}

// Sweep drops visitors idle for longer than idle. Their stored credentials
// survive, so a returning visitor is restored.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	var expired []*Visitor
	for id, v := range m.visitors {
		v.mu.Lock()
		stale := v.lastSeen.Before(cutoff)
		v.mu.Unlock()
		if stale {
			expired = append(expired, v)
			delete(m.visitors, id)
		}
	}
	m.metrics.SetActiveVisitors(len(m.visitors))
	m.mu.Unlock()

	for _, v := range expired {
		v.close()
	}
	return len(expired)
}

func (m *Manager) Close() {
	m.mu.Lock()
	visitors := m.visitors
	m.visitors = map[string]*Visitor{}
	m.mu.Unlock()

	for _, v := range visitors {
		v.close()
	}
	m.cancel()
	m.metrics.SetActiveVisitors(0)
}

// State is the current state of the visitor's session.
func (m *Manager) State(visitorID string) State {
	return m.Get(visitorID).Controller.State()
}

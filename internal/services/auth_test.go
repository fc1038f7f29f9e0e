package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"easemyday/internal/actionlink"
	"easemyday/internal/activity"
	"easemyday/internal/cache"
	"easemyday/internal/configuration"
	"easemyday/internal/identity"
	"easemyday/internal/identity/identitytest"
	m "easemyday/internal/middlewares"
	"easemyday/internal/models"
	"easemyday/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	visitorCookie = "emd_visitor"
	testEmail     = "ada@uni.edu"
	testPassword  = "Str0ngPass"
)

// --- Mock Activity Logger ---

type MockActivityLogger struct {
	mu      sync.Mutex
	entries []models.Activity
}

func (l *MockActivityLogger) Send(entry models.Activity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *MockActivityLogger) Search(_ map[string][]string, _ int) ([]map[string]any, error) {
	return nil, nil
}

func (l *MockActivityLogger) CountByDay(_ map[string][]string, _ int) ([]models.TimeSeriesPoint, error) {
	return nil, nil
}

func (l *MockActivityLogger) Close() error { return nil }

func (l *MockActivityLogger) Actions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	actions := make([]string, 0, len(l.entries))
	for _, entry := range l.entries {
		actions = append(actions, entry.Filter.Fields["action"])
	}
	return actions
}

var _ activity.IActivityLogger = (*MockActivityLogger)(nil)

// --- Harness ---

type authHarness struct {
	provider *identitytest.Provider
	sessions *session.Manager
	links    *actionlink.Dispatcher
	activity *MockActivityLogger
	router   chi.Router
}

func newAuthHarness(t *testing.T, providers configuration.Providers) *authHarness {
	t.Helper()

	c := cache.NewMemoryCache()
	h := &authHarness{
		provider: identitytest.New(),
		links:    actionlink.NewDispatcher(actionlink.NewPendingStore(c, 15*time.Minute), "http://web.test", nil),
		activity: &MockActivityLogger{},
	}
	h.sessions = session.NewManager(context.Background(), session.Options{
		Provider:  h.provider,
		Store:     session.NewCacheCredentialStore(c, time.Hour),
		Policy:    identity.DefaultPasswordPolicy(),
		ActionURL: "http://api.test/auth/action",
		Logger:    zap.NewNop(),
	})
	t.Cleanup(h.sessions.Close)

	h.router = chi.NewRouter()
	h.router.Use(m.Visitor(visitorCookie, false, time.Hour))
	h.router.Mount("/auth", AuthService{
		Sessions:       h.sessions,
		Pending:        h.links,
		Providers:      providers,
		Policy:         identity.DefaultPasswordPolicy(),
		Flows:          models.FlowConfig{RedirectDelay: 2 * time.Second, PollInterval: 10 * time.Millisecond},
		WebURL:         "http://web.test",
		ActivityLogger: h.activity,
	}.Routes())
	h.router.Mount("/session", SessionService{Sessions: h.sessions}.Routes())
	return h
}

type client struct {
	t       *testing.T
	router  http.Handler
	visitor string
}

// client returns a browser whose session has finished loading.
func (h *authHarness) client(t *testing.T) *client {
	t.Helper()
	id := uuid.NewString()
	select {
	case <-h.sessions.Get(id).Controller.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not load")
	}
	return &client{t: t, router: h.router, visitor: id}
}

func (c *client) do(method, target, payload string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(payload))
	req.AddCookie(&http.Cookie{Name: visitorCookie, Value: c.visitor})
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Status  int      `json:"status"`
	Error   []string `json:"error"`
	Message string   `json:"message"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value), rec.Body.String())
	return value
}

// --- Tests ---

func TestAuthSignUp(t *testing.T) {
	h := newAuthHarness(t, nil)
	c := h.client(t)

	t.Run("should sign the visitor in and send a verification email", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/auth/signup", `{"email":"ada@uni.edu","password":"Str0ngPass","display_name":"Ada"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		state := decode[session.State](t, rec)
		require.NotNil(t, state.User)
		assert.Equal(t, testEmail, state.User.Email)
		assert.Equal(t, "Ada", state.User.DisplayName)
		assert.False(t, state.User.EmailVerified)
		assert.NotEmpty(t, h.provider.LastCode(identity.ModeVerifyEmail, testEmail))
		assert.Contains(t, h.activity.Actions(), string(models.ActivitySignUp))
	})

	t.Run("should reject a taken address", func(t *testing.T) {
		rec := h.client(t).do(http.MethodPost, "/auth/signup", `{"email":"ada@uni.edu","password":"Str0ngPass","display_name":"Ada"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, []string{string(identity.KindEmailAlreadyInUse)}, decode[errorBody](t, rec).Error)
	})

	t.Run("should reject a weak password", func(t *testing.T) {
		rec := h.client(t).do(http.MethodPost, "/auth/signup", `{"email":"bob@uni.edu","password":"short","display_name":"Bob"}`)

		assert.Equal(t, []string{string(identity.KindWeakPassword)}, decode[errorBody](t, rec).Error)
	})

	t.Run("should validate the body", func(t *testing.T) {
		rec := h.client(t).do(http.MethodPost, "/auth/signup", `{"email":"bob@uni.edu"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.ElementsMatch(t, []string{"PASSWORD_REQUIRED", "DISPLAY_NAME_REQUIRED"}, decode[errorBody](t, rec).Error)
	})
}

func TestAuthLoginAndLogout(t *testing.T) {
	h := newAuthHarness(t, nil)
	h.provider.AddAccount(testEmail, testPassword, true)
	c := h.client(t)

	rec := c.do(http.MethodPost, "/auth/login", `{"email":"ada@uni.edu","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, []string{string(identity.KindInvalidCredentials)}, body.Error)
	assert.Equal(t, identity.KindInvalidCredentials.Message(), body.Message)

	rec = c.do(http.MethodPost, "/auth/login", `{"email":"ada@uni.edu","password":"Str0ngPass"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	state := decode[session.State](t, rec)
	require.NotNil(t, state.User)
	assert.True(t, state.User.EmailVerified)
	assert.Nil(t, state.LastError)

	rec = c.do(http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testEmail, decode[session.State](t, rec).User.Email)

	t.Run("should not leak the session to other visitors", func(t *testing.T) {
		rec := h.client(t).do(http.MethodGet, "/session", "")
		assert.Nil(t, decode[session.State](t, rec).User)
	})

	rec = c.do(http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, decode[session.State](t, c.do(http.MethodGet, "/session", "")).User)

	t.Run("should accept a logout without a session", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/auth/logout", "").Code)
	})

	assert.Equal(t, []string{string(models.ActivityLogin), string(models.ActivityLogout)}, h.activity.Actions())
}

func TestAuthAccountUpdates(t *testing.T) {
	h := newAuthHarness(t, nil)
	h.provider.AddAccount(testEmail, testPassword, true)
	c := h.client(t)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/auth/login", `{"email":"ada@uni.edu","password":"Str0ngPass"}`).Code)

	t.Run("should rename the user", func(t *testing.T) {
		rec := c.do(http.MethodPatch, "/auth/profile", `{"display_name":"Ada L."}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Ada L.", decode[session.State](t, rec).User.DisplayName)
	})

	t.Run("should reject a wrong current password", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/auth/password", `{"current_password":"nope-nope","new_password":"An0therPass"}`)

		assert.Equal(t, []string{string(identity.KindWrongCurrentPassword)}, decode[errorBody](t, rec).Error)
	})

	t.Run("should change the password and keep the session", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/auth/password", `{"current_password":"Str0ngPass","new_password":"An0therPass"}`)

		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.NotNil(t, h.sessions.State(c.visitor).User)
	})

	t.Run("should refresh the principal", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/auth/refresh", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testEmail, decode[session.State](t, rec).User.Email)
	})
}

func TestAuthRequiresSignedInSession(t *testing.T) {
	h := newAuthHarness(t, nil)
	c := h.client(t)

	rec := c.do(http.MethodPatch, "/auth/profile", `{"display_name":"Nobody"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, []string{string(identity.KindNoCurrentUser)}, decode[errorBody](t, rec).Error)
}

func TestAuthWithoutVisitor(t *testing.T) {
	h := newAuthHarness(t, nil)
	svc := AuthService{Sessions: h.sessions, ActivityLogger: h.activity}

	_, err := svc.Login(context.Background(), zap.NewNop(), models.UserClaims{}, nil,
		models.AuthLoginBody{Email: testEmail, Password: testPassword})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNAUTHENTICATED")
}

func TestAuthProviders(t *testing.T) {
	providers := configuration.Providers{
		"microsoft": {Name: "Microsoft", Type: models.OIDCProviderType, Order: 1, Domains: []string{"uni.edu"}},
		"google":    {Name: "Google", Type: models.OIDCProviderType, Order: 0},
	}
	h := newAuthHarness(t, providers)
	c := h.client(t)

	t.Run("should list providers in configured order", func(t *testing.T) {
		rec := c.do(http.MethodGet, "/auth/providers", "")

		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[struct {
			Data []models.ProviderResponse `json:"data"`
		}](t, rec).Data
		require.Len(t, list, 2)
		assert.Equal(t, "google", list[0].ID)
		assert.Equal(t, []string{}, list[0].Domains)
		assert.Equal(t, []string{"uni.edu"}, list[1].Domains)
	})

	t.Run("should answer unknown providers", func(t *testing.T) {
		rec := c.do(http.MethodGet, "/auth/providers/github/begin", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, []string{"PROVIDER_NOT_FOUND"}, decode[errorBody](t, rec).Error)
	})

	svc := AuthService{Sessions: h.sessions, Providers: providers, ActivityLogger: h.activity}
	ctx := context.WithValue(context.Background(), models.VisitorKey{}, c.visitor)

	t.Run("should report an abandoned consent", func(t *testing.T) {
		_, err := svc.OpenIDCallback(ctx, zap.NewNop(), "google", "", "nonce")

		assert.Equal(t, identity.KindPopupClosedByUser, identity.KindOf(err))
		assert.Nil(t, h.sessions.State(c.visitor).User)
		assert.Equal(t, 0, h.provider.Calls("AuthenticateFederated"))
	})

	t.Run("should not reach the controller for unknown providers", func(t *testing.T) {
		_, err := svc.OpenIDCallback(ctx, zap.NewNop(), "github", "code", "nonce")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "PROVIDER_NOT_FOUND")
	})
}

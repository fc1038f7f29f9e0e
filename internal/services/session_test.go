package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"easemyday/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionState(t *testing.T) {
	h := newAuthHarness(t, nil)
	c := h.client(t)

	rec := c.do(http.MethodGet, "/session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[session.State](t, rec)
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.User)
}

func TestSessionEvents(t *testing.T) {
	h := newAuthHarness(t, nil)
	h.provider.AddAccount(testEmail, testPassword, true)
	c := h.client(t)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/auth/login", `{"email":"ada@uni.edu","password":"Str0ngPass"}`).Code)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/session/events", nil).WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: visitorCookie, Value: c.visitor})
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "event: state\n"), body)
	assert.Contains(t, body, `"email":"ada@uni.edu"`)
}

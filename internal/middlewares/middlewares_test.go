package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"easemyday/internal/cache"
	"easemyday/internal/helpers"
	"easemyday/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type errorBody struct {
	Status int      `json:"status"`
	Error  []string `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestValidate(t *testing.T) {
	var got models.AuthLoginBody
	handler := Validate[models.AuthLoginBody](http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, found := helpers.GetBody[models.AuthLoginBody](r.Context())
		require.True(t, found)
		got = body
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("should hand a valid body to the next handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"ada@uni.edu","password":"Secret123"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.AuthLoginBody{Email: "ada@uni.edu", Password: "Secret123"}, got)
	})

	t.Run("should reject malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"BAD_REQUEST"}, decodeError(t, rec).Error)
	})

	t.Run("should name the failing fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"not-an-email"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.ElementsMatch(t, []string{"EMAIL_EMAIL", "PASSWORD_REQUIRED"}, decodeError(t, rec).Error)
	})
}

func TestValidateQuery(t *testing.T) {
	var got models.DateWindowParams
	handler := ValidateQuery[models.DateWindowParams](http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = helpers.GetBody[models.DateWindowParams](r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("should decode a date window", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?start=2026-03-01T00:00:00Z&end=2026-03-31T00:00:00Z", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, got.Enabled())
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got.Start.UTC())
	})

	t.Run("should accept no window", func(t *testing.T) {
		got = models.DateWindowParams{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, got.Enabled())
	})

	t.Run("should reject a malformed date", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?start=yesterday", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestVisitor(t *testing.T) {
	var seen string
	handler := Visitor("emd_visitor", true, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = helpers.GetVisitorID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("should issue a cookie to new visitors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		cookie := cookies[0]
		assert.Equal(t, "emd_visitor", cookie.Name)
		assert.Equal(t, seen, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, 3600, cookie.MaxAge)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})

	t.Run("should keep a known visitor", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "emd_visitor", Value: id})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, id, seen)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("should replace a forged cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "emd_visitor", Value: "../../etc"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.NotEqual(t, "../../etc", seen)
		assert.Len(t, rec.Result().Cookies(), 1)
	})
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(cache.NewMemoryCache(), nil, 2)(http.HandlerFunc(ok))

	serve := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, serve("10.0.0.1:1235").Code)

	rec := serve("10.0.0.1:1236")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, []string{"TOO_MANY_REQUESTS"}, decodeError(t, rec).Error)

	assert.Equal(t, http.StatusOK, serve("10.0.0.2:1234").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		remote   string
		xff      string
		trusted  []string
		expected string
	}{
		{"direct", "203.0.113.9:443", "", nil, "203.0.113.9"},
		{"untrusted forwarder", "203.0.113.9:443", "198.51.100.1", nil, "203.0.113.9"},
		{"trusted proxy", "10.0.0.5:443", "198.51.100.1, 10.0.0.5", []string{"10.0.0.5"}, "198.51.100.1"},
		{"trusted network", "10.0.3.7:443", "198.51.100.1", []string{"10.0.0.0/16"}, "198.51.100.1"},
		{"trusted proxy without header", "10.0.0.5:443", "", []string{"10.0.0.5"}, "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.expected, ClientIP(req, tt.trusted))
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("should store a request logger and echo the request id", func(t *testing.T) {
		var logger *zap.Logger
		handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger = helpers.GetLogger(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, id)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
		assert.NotNil(t, logger)
	})

	t.Run("should generate an id when the header is not a uuid", func(t *testing.T) {
		handler := Logger(http.HandlerFunc(ok))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})
}

func TestTimeout(t *testing.T) {
	handler := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	t.Run("should cancel a slow request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("should leave event streams open", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		req.Header.Set("Accept", "text/event-stream")

		done := make(chan struct{})
		go func() {
			handler.ServeHTTP(httptest.NewRecorder(), req)
			close(done)
		}()

		select {
		case <-done:
			t.Fatal("event stream was cancelled")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

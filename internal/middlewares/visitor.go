package middlewares

import (
	"context"
	"net/http"
	"time"

	"easemyday/internal/models"

	"github.com/google/uuid"
)

// Visitor identifies the browser through an opaque cookie, issuing a new one
// when it is missing or malformed.
func Visitor(cookieName string, secure bool, maxAge time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			var visitorID string
			if cookie, err := r.Cookie(cookieName); err == nil {
				if id, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					visitorID = id.String()
				}
			}

			if visitorID == "" {
				visitorID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    visitorID,
					Path:     "/",
					MaxAge:   int(maxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), models.VisitorKey{}, visitorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

// Package gate decides whether a visitor may see a protected view.
package gate

import (
	"context"
	"net/http"
	"strings"

	"easemyday/internal/configuration"
	apierrors "easemyday/internal/errors"
	"easemyday/internal/helpers"
	"easemyday/internal/models"
	"easemyday/internal/session"
)

type Outcome string

const (
	OutcomeLoading  Outcome = "loading"
	OutcomeRedirect Outcome = "redirect"
	OutcomeRender   Outcome = "render"
)

// Requirement is what a guarded view asks of the session.
type Requirement struct {
	Verified bool
}

type Decision struct {
	Outcome    Outcome
	RedirectTo string
}

// Decide is recomputed from the latest state on every request. It never
// redirects while the session is still loading.
func Decide(state session.State, req Requirement) Decision {
	switch {
	case state.IsLoading:
		return Decision{Outcome: OutcomeLoading}
	case state.User == nil:
		return Decision{Outcome: OutcomeRedirect, RedirectTo: configuration.ScreenLogin}
	case req.Verified && !state.User.EmailVerified:
		return Decision{Outcome: OutcomeRedirect, RedirectTo: configuration.ScreenVerifyEmail}
	default:
		return Decision{Outcome: OutcomeRender}
	}
}

// Sessions resolves the state of a visitor's session.
type Sessions interface {
	State(visitorID string) session.State
}

type redirectResponse struct {
	Status     int      `json:"status"`
	Error      []string `json:"error"`
	RedirectTo string   `json:"redirect_to"`
}

// Middleware guards the paths listed in configuration.AccessRulePrefixMatchPath.
// requireVerified turns the per-rule verification requirement on or off.
func Middleware(sessions Sessions, webURL string, requireVerified bool) func(next http.Handler) http.Handler {
	webURL = strings.TrimSuffix(webURL, "/")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			rule, guarded := configuration.MatchAccessRule(r.URL.Path)
			if !guarded {
				next.ServeHTTP(w, r)
				return
			}

			visitorID, err := helpers.GetVisitorID(r.Context())
			if err != nil {
				helpers.RespondWithError(w, http.StatusUnauthorized, []string{apierrors.ErrUnauthenticated})
				return
			}

			state := sessions.State(visitorID)
			decision := Decide(state, Requirement{Verified: requireVerified && rule.RequireVerified})

			switch decision.Outcome {
			case OutcomeLoading:
				w.Header().Set("Retry-After", "1")
				helpers.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})

			case OutcomeRedirect:
				if isNavigation(r) {
					http.Redirect(w, r, webURL+decision.RedirectTo, http.StatusSeeOther)
					return
				}
				status, code := http.StatusUnauthorized, apierrors.ErrUnauthenticated
				if state.User != nil {
					status, code = http.StatusForbidden, apierrors.ErrNotVerified
				}
				helpers.RespondWithJSON(w, status, redirectResponse{
					Status:     status,
					Error:      []string{code},
					RedirectTo: decision.RedirectTo,
				})

			default:
				claims := models.UserClaims{
					UserID:        state.User.UID,
					Email:         state.User.Email,
					DisplayName:   state.User.GreetingName(),
					EmailVerified: state.User.EmailVerified,
				}
				ctx := context.WithValue(r.Context(), models.UserClaimKey{}, claims)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		}
		return http.HandlerFunc(fn)
	}
}

// isNavigation reports a browser page load as opposed to an API call.
func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

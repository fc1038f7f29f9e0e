package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"easemyday/internal/configuration"
	apierrors "easemyday/internal/errors"
	"easemyday/internal/helpers"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	stateCookie   = "emd_oidc_state"
	nonceCookie   = "emd_oidc_nonce"
	openIDTimeout = 5 * time.Minute
	secretLength  = 32
)

type (
	OpenIDBeginFunc    func(providerKey string, state string, nonce string) (string, error)
	OpenIDCallbackFunc func(ctx context.Context, logger *zap.Logger, providerKey string, code string, nonce string) (string, error)
)

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func setShortCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// OpenIDBeginHandler stores a fresh state and nonce in cookies and redirects
// the browser to the provider.
func OpenIDBeginHandler(fn OpenIDBeginFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := helpers.GetLogger(r.Context())
		providerKey := chi.URLParam(r, "provider")

		state, err := helpers.GenerateSecret(secretLength)
		if err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}
		nonce, err := helpers.GenerateSecret(secretLength)
		if err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}

		redirectURL, err := fn(providerKey, state, nonce)
		if err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}

		setShortCookie(w, r, stateCookie, state, openIDTimeout)
		setShortCookie(w, r, nonceCookie, nonce, openIDTimeout)
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// OpenIDCallbackHandler checks the state, hands the code to fn and sends the
// browser to the screen fn returns. A provider-side error such as a cancelled
// consent reaches fn as an empty code.
func OpenIDCallbackHandler(webURL string, fn OpenIDCallbackFunc) http.HandlerFunc {
	webURL = strings.TrimSuffix(webURL, "/")

	return func(w http.ResponseWriter, r *http.Request) {
		logger := helpers.GetLogger(r.Context())
		providerKey := chi.URLParam(r, "provider")
		query := r.URL.Query()

		setShortCookie(w, r, stateCookie, "", -time.Second)
		setShortCookie(w, r, nonceCookie, "", -time.Second)

		state, err := r.Cookie(stateCookie)
		if err != nil || state.Value == "" || state.Value != query.Get("state") {
			logger.Debug("OpenID state mismatch", zap.String("provider", providerKey))
			redirectWithError(w, r, webURL, apierrors.ErrBadRequest)
			return
		}

		nonce, err := r.Cookie(nonceCookie)
		if err != nil {
			redirectWithError(w, r, webURL, apierrors.ErrBadRequest)
			return
		}

		code := query.Get("code")
		if query.Get("error") != "" {
			code = ""
		}

		screen, err := fn(r.Context(), logger, providerKey, code, nonce.Value)
		if err != nil {
			apiErr := apierrors.From(err)
			if apiErr.Code == http.StatusInternalServerError {
				logger.Error("OpenID callback failed", zap.Error(err))
			}
			redirectWithError(w, r, webURL, apiErr.Errors[0])
			return
		}

		http.Redirect(w, r, webURL+screen, http.StatusFound)
	}
}

func redirectWithError(w http.ResponseWriter, r *http.Request, webURL, code string) {
	http.Redirect(w, r, webURL+configuration.ScreenLogin+"?error="+url.QueryEscape(code), http.StatusFound)
}

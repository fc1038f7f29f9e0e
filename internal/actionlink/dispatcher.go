package actionlink

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"easemyday/internal/configuration"
	"easemyday/internal/helpers"
	"easemyday/internal/identity"
	"easemyday/internal/metrics"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const modeNone = "none"

// Destination is where a link of some mode leads.
type Destination struct {
	Screen string
	// CarriesCode is set for screens that consume the code themselves.
	CarriesCode bool
}

var routes = map[string]Destination{
	identity.ModeResetPassword: {Screen: configuration.ScreenResetPassword, CarriesCode: true},
	identity.ModeVerifyEmail:   {Screen: configuration.ScreenVerifyEmail, CarriesCode: true},
	identity.ModeRecoverEmail:  {Screen: configuration.ScreenLogin},
}

// Route maps a link to its screen. A link without a code has nothing
// actionable and lands on the home screen whatever its mode.
func Route(mode, code string) Destination {
	if code == "" {
		return Destination{Screen: configuration.ScreenHome}
	}
	if destination, ok := routes[mode]; ok {
		return destination
	}
	return Destination{Screen: configuration.ScreenHome}
}

// Dispatcher is the single entry point of provider email links. It only
// routes; the receiving screens talk to the provider.
type Dispatcher struct {
	Pending *PendingStore
	WebURL  string
	Metrics *metrics.Metrics
	now     func() time.Time
}

func NewDispatcher(pending *PendingStore, webURL string, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		Pending: pending,
		WebURL:  strings.TrimSuffix(webURL, "/"),
		Metrics: m,
		now:     time.Now,
	}
}

func (d *Dispatcher) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", d.Dispatch)
	return r
}

// Dispatch persists the code for screens that consume one and redirects.
func (d *Dispatcher) Dispatch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("mode")
	code := query.Get("oobCode")
	destination := Route(mode, code)

	label := mode
	switch {
	case code == "":
		label = modeNone
	case !destination.CarriesCode && destination.Screen == configuration.ScreenHome:
		label = "unknown"
	}
	d.Metrics.RecordActionLink(label)

	target := d.WebURL + destination.Screen
	if destination.CarriesCode {
		if visitorID, err := helpers.GetVisitorID(r.Context()); err == nil {
			req := ActionRequest{Mode: mode, Code: code, StoredAt: d.now()}
			if err = d.Pending.Put(r.Context(), visitorID, req); err != nil {
				// The code still travels in the redirect.
				zap.L().Error("Failed to persist pending action", zap.String("mode", mode), zap.Error(err))
			}
		}
		target += "?" + url.Values{"oobCode": {code}}.Encode()
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// Recover returns the code a screen of mode should use. The code carried by
// the navigation wins; otherwise the pending slot is used if it was written
// for the same mode.
func (d *Dispatcher) Recover(ctx context.Context, visitorID, mode, carried string) (string, error) {
	if carried != "" {
		return carried, nil
	}

	req, err := d.Pending.Get(ctx, visitorID)
	if err != nil || req == nil || req.Mode != mode {
		return "", err
	}
	return req.Code, nil
}

// Consume clears the slot once its code succeeded or failed for good.
func (d *Dispatcher) Consume(ctx context.Context, visitorID string) {
	if err := d.Pending.Clear(ctx, visitorID); err != nil {
		zap.L().Error("Failed to clear pending action", zap.String("visitor_id", visitorID), zap.Error(err))
	}
}

package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"easemyday/internal/cache"
	apierrors "easemyday/internal/errors"
	"easemyday/internal/helpers"

	"go.uber.org/zap"
)

// RateLimit caps every client at requestsPerMinute. Forwarded headers are only
// honoured when the direct peer is one of trustedProxies.
func RateLimit(c cache.ICache, trustedProxies []string, requestsPerMinute int) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			logger := helpers.GetLogger(r.Context())
			clientIP := ClientIP(r, trustedProxies)

			retryAfter, err := c.GetRateLimit(clientIP, requestsPerMinute)
			if err != nil {
				// Fail open when the cache is down.
				logger.Error("Failed to read rate limit", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				helpers.RespondWithError(w, http.StatusTooManyRequests, []string{apierrors.ErrTooManyRequests})
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// ClientIP returns the address the request came from.
func ClientIP(r *http.Request, trustedProxies []string) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}

	if !isTrustedProxy(peer, trustedProxies) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return peer
}

func isTrustedProxy(peer string, trustedProxies []string) bool {
	ip := net.ParseIP(peer)
	if ip == nil {
		return false
	}
	for _, proxy := range trustedProxies {
		if strings.Contains(proxy, "/") {
			if _, network, err := net.ParseCIDR(proxy); err == nil && network.Contains(ip) {
				return true
			}
			continue
		}
		if trusted := net.ParseIP(proxy); trusted != nil && trusted.Equal(ip) {
			return true
		}
	}
	return false
}

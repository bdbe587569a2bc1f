package middleware

import (
	"context"
	"fmt"
	"net/http"

	"jukebox/internal/logging"
	"jukebox/internal/metrics"
)

// Verifier checks a username and password pair.
type Verifier interface {
	Verify(user, password string) bool
}

// BasicAuthConfig holds configuration for the basic auth middleware
type BasicAuthConfig struct {
	Realm string
	// ExemptPaths are served without credentials
	ExemptPaths []string
}

// DefaultBasicAuthConfig exempts the health probes.
func DefaultBasicAuthConfig() BasicAuthConfig {
	return BasicAuthConfig{
		Realm:       "jukebox",
		ExemptPaths: []string{"/healthz", "/livez", "/readyz"},
	}
}

type userSlotKey struct{}

// userSlot is installed by Logger so the access log can see the user that
// an inner BasicAuth accepted.
type userSlot struct {
	name string
}

func withUserSlot(ctx context.Context) context.Context {
	if _, ok := ctx.Value(userSlotKey{}).(*userSlot); ok {
		return ctx
	}
	return context.WithValue(ctx, userSlotKey{}, &userSlot{})
}

// Username returns the authenticated user for the request, if any.
func Username(ctx context.Context) (string, bool) {
	slot, ok := ctx.Value(userSlotKey{}).(*userSlot)
	if !ok || slot.name == "" {
		return "", false
	}
	return slot.name, true
}

func setUsername(ctx context.Context, user string) context.Context {
	ctx = withUserSlot(ctx)
	ctx.Value(userSlotKey{}).(*userSlot).name = user
	return ctx
}

// BasicAuth returns a middleware requiring HTTP basic credentials accepted
// by v. Failures get a 401 with a WWW-Authenticate challenge.
func BasicAuth(v Verifier, config BasicAuthConfig) func(http.Handler) http.Handler {
	exempt := make(map[string]bool, len(config.ExemptPaths))
	for _, p := range config.ExemptPaths {
		exempt[p] = true
	}
	challenge := fmt.Sprintf("Basic realm=%q", config.Realm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			user, password, ok := r.BasicAuth()
			if !ok {
				metrics.AuthAttemptsTotal.WithLabelValues("missing").Inc()
				unauthorized(w, challenge)
				return
			}
			if !v.Verify(user, password) {
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				logging.Warn("Authentication failed for user %q from %s", sanitizeLogField(user), sanitizeLogField(getClientIP(r)))
				unauthorized(w, challenge)
				return
			}

			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			next.ServeHTTP(w, r.WithContext(setUsername(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter, challenge string) {
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

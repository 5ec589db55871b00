// Package middleware provides the HTTP guard chain: request ids, access
// logging, rate limiting, tenant resolution, authentication and the
// authorization checks. Guards compose with plain http.Handler wrapping
// and attach what they resolve to the request context.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shepherdcrm/authcore/session"
)

// Authenticator validates a bearer token against a resolved tenant and
// returns the current user view. Satisfied by *authcore.Service.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken, resolvedTenantID string) (*session.UserSnapshot, error)
}

// Chain applies middlewares outermost first, so
// Chain(h, A, B) serves as A(B(h)).
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// bearerToken extracts the token from an Authorization header, or "".
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

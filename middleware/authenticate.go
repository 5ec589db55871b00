package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/internal/respond"
)

// Authenticate requires a valid bearer token and attaches the user
// snapshot to the context. The tenant must already be resolved; the
// token's tenant claim is cross-checked against it.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := authcore.RequestIDFromContext(r.Context())
			token := bearerToken(r)
			if token == "" {
				respond.Error(w, http.StatusUnauthorized, requestID,
					"token_required", "authentication required")
				return
			}

			tenantID := ""
			if t := authcore.TenantFromContext(r.Context()); t != nil {
				tenantID = t.ID
			}
			snap, err := auth.Authenticate(r.Context(), token, tenantID)
			if err != nil {
				writeAuthError(w, requestID, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(authcore.WithUser(r.Context(), snap)))
		})
	}
}

// OptionalAuthenticate attaches the user when a valid token is present
// and lets the request through anonymously otherwise. A failing token
// never terminates the request: a visitor with an expired token still
// sees public routes. The failure is logged, not surfaced.
func OptionalAuthenticate(log *zap.Logger, auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			tenantID := ""
			if t := authcore.TenantFromContext(r.Context()); t != nil {
				tenantID = t.ID
			}
			snap, err := auth.Authenticate(r.Context(), token, tenantID)
			if err != nil {
				log.Debug("optional auth: token ignored",
					zap.String("request_id", authcore.RequestIDFromContext(r.Context())),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(authcore.WithUser(r.Context(), snap)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errors.Is(err, authcore.ErrUnavailable):
		respond.Error(w, http.StatusServiceUnavailable, requestID,
			"unavailable", "authentication backend unavailable")
	case errors.Is(err, authcore.ErrTokenRevoked):
		respond.Error(w, http.StatusUnauthorized, requestID,
			"token_revoked", "token has been revoked")
	case errors.Is(err, authcore.ErrTenantMismatch):
		respond.Error(w, http.StatusUnauthorized, requestID,
			"tenant_mismatch", "token does not belong to this tenant")
	case errors.Is(err, authcore.ErrUserInactive):
		respond.Error(w, http.StatusUnauthorized, requestID,
			"user_inactive", "account is not active")
	default:
		respond.Error(w, http.StatusUnauthorized, requestID,
			"token_invalid", "invalid or expired token")
	}
}

package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/internal/respond"
	"github.com/shepherdcrm/authcore/permission"
)

// RequirePermission refuses the request unless the authenticated user
// holds at least one of the named permissions. Super admins and wildcard
// holders always pass. Denials are logged with who held what.
func RequirePermission(log *zap.Logger, required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := authcore.RequestIDFromContext(r.Context())
			snap := authcore.UserFromContext(r.Context())
			if snap == nil {
				// Misordered chain or missing Authenticate guard, not a
				// user failure.
				respond.Error(w, http.StatusUnauthorized, requestID,
					"token_required", "authentication required")
				return
			}
			if snap.Role == string(permission.RoleSuperAdmin) ||
				permission.HasAny(snap.Permissions, required) {
				next.ServeHTTP(w, r)
				return
			}
			log.Warn("permission denied",
				zap.String("request_id", requestID),
				zap.String("user_id", snap.ID),
				zap.String("role", snap.Role),
				zap.Strings("held", snap.Permissions),
				zap.Strings("required", required))
			respond.ErrorDetails(w, http.StatusForbidden, requestID,
				"permission_denied", "insufficient permissions",
				map[string]interface{}{"required": required})
		})
	}
}

// RequireOwnership refuses the request unless the authenticated user is
// the resource owner named by the path parameter, or holds an elevated
// role. Admins and pastors manage other people's records as part of the
// job; everyone else only touches their own.
func RequireOwnership(pathParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := authcore.RequestIDFromContext(r.Context())
			snap := authcore.UserFromContext(r.Context())
			if snap == nil {
				respond.Error(w, http.StatusUnauthorized, requestID,
					"token_required", "authentication required")
				return
			}
			if permission.Role(snap.Role).Elevated() || snap.Role == string(permission.RoleSuperAdmin) {
				next.ServeHTTP(w, r)
				return
			}
			if owner := r.PathValue(pathParam); owner != "" && owner == snap.ID {
				next.ServeHTTP(w, r)
				return
			}
			respond.Error(w, http.StatusForbidden, requestID,
				"ownership_denied", "you may only access your own resources")
		})
	}
}

// RequireFeature refuses the request when the resolved tenant's plan
// does not include the named feature.
func RequireFeature(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := authcore.RequestIDFromContext(r.Context())
			t := authcore.TenantFromContext(r.Context())
			if t == nil {
				respond.Error(w, http.StatusBadRequest, requestID,
					"tenant_required", "could not determine tenant for request")
				return
			}
			if !t.FeatureEnabled(name) {
				respond.Error(w, http.StatusForbidden, requestID,
					"feature_disabled", "this feature is not included in your plan")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

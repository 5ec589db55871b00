package middleware

import (
	"net/http"
	"strings"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/internal/respond"
	"github.com/shepherdcrm/authcore/tenant"
)

// TenantConfig controls which paths may pass without a tenant.
type TenantConfig struct {
	// PublicPaths are served without tenant context, health and metrics
	// style endpoints. Exact match, or prefix match when the entry ends
	// with a slash.
	PublicPaths []string
}

// DefaultTenantConfig exempts the operational endpoints.
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{PublicPaths: []string{"/healthz", "/readyz", "/metrics"}}
}

func (c TenantConfig) public(path string) bool {
	for _, p := range c.PublicPaths {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// Tenant resolves the request's tenant and attaches it to the context.
// Requests that cannot be matched to an active tenant are refused with
// 400 unless the path is public. Suspended tenants resolve to nothing;
// their traffic is indistinguishable from an unknown tenant.
func Tenant(resolver *tenant.Resolver, cfg TenantConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.public(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			requestID := authcore.RequestIDFromContext(r.Context())
			identifier := resolver.Identify(r)
			if identifier == "" {
				respond.Error(w, http.StatusBadRequest, requestID,
					"tenant_required", "could not determine tenant for request")
				return
			}
			t, err := resolver.Resolve(r.Context(), identifier)
			if err != nil {
				respond.Error(w, http.StatusServiceUnavailable, requestID,
					"tenant_unavailable", "tenant lookup failed")
				return
			}
			if t == nil {
				respond.Error(w, http.StatusBadRequest, requestID,
					"tenant_unknown", "unknown tenant")
				return
			}
			next.ServeHTTP(w, r.WithContext(authcore.WithTenant(r.Context(), t)))
		})
	}
}

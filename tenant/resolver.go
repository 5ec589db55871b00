package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore/cache"
	"github.com/shepherdcrm/authcore/jwt"
)

// ResolverConfig tunes request-to-tenant resolution.
type ResolverConfig struct {
	// Header is the explicit tenant-identifying request header.
	Header string
	// ReservedSubdomains never resolve to a tenant (shared infrastructure
	// hostnames).
	ReservedSubdomains []string
	// PathPrefixes are public/widget route prefixes that embed the tenant
	// id as the next path segment, e.g. "/api/public/widget/".
	PathPrefixes []string
	// CacheTTL bounds the tenant snapshot cache.
	CacheTTL time.Duration
	// IDLengthThreshold: identifiers at least this long are treated as
	// record ids rather than subdomains.
	IDLengthThreshold int
}

// DefaultResolverConfig returns the production resolution policy.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Header:             "X-Tenant-ID",
		ReservedSubdomains: []string{"api", "www", "admin", "localhost"},
		PathPrefixes:       []string{"/api/public/widget/"},
		CacheTTL:           5 * time.Minute,
		IDLengthThreshold:  20,
	}
}

// Resolver determines which tenant a request belongs to. Identification
// signals are tried in a fixed precedence order; the first match wins.
type Resolver struct {
	store  Store
	cache  cache.Cache
	config ResolverConfig
	logger *zap.Logger
}

// NewResolver wires a Resolver. A nil logger falls back to zap.NewNop.
func NewResolver(store Store, c cache.Cache, cfg ResolverConfig, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Header == "" {
		cfg.Header = "X-Tenant-ID"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.IDLengthThreshold <= 0 {
		cfg.IDLengthThreshold = 20
	}
	return &Resolver{store: store, cache: c, config: cfg, logger: logger}
}

// Identify extracts the tenant identifier from the request, in precedence
// order: host subdomain (excluding reserved names), explicit header, the
// tenant claim of a bearer token (decode only, unverified), then a path
// segment on the configured widget prefixes. Empty when no signal matches.
func (r *Resolver) Identify(req *http.Request) string {
	if sub := r.subdomain(req.Host); sub != "" {
		return sub
	}
	if v := strings.TrimSpace(req.Header.Get(r.config.Header)); v != "" {
		return v
	}
	if tid := bearerTenant(req.Header.Get("Authorization")); tid != "" {
		return tid
	}
	return r.pathTenant(req.URL.Path)
}

// Resolve looks the identifier up, cache first, store on miss, and returns
// the active tenant or nil when the identifier matches nothing. A nil
// result is not an error; route policy decides whether it is terminal.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*Tenant, error) {
	if identifier == "" {
		return nil, nil
	}

	if cached, err := r.fromCache(ctx, identifier); err == nil && cached != nil {
		return cached, nil
	} else if err != nil && !errors.Is(err, cache.ErrMiss) {
		// Performance cache: fail open to the store.
		r.logger.Warn("tenant cache read failed", zap.String("identifier", identifier), zap.Error(err))
	}

	var (
		found *Tenant
		err   error
	)
	if r.idShaped(identifier) {
		found, err = r.store.FindActiveByID(ctx, identifier)
	} else {
		found, err = r.store.FindActiveBySubdomain(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if data, merr := json.Marshal(found); merr == nil {
		if cerr := r.cache.Set(ctx, cacheKey(identifier), string(data), r.config.CacheTTL); cerr != nil {
			r.logger.Warn("tenant cache write failed", zap.String("identifier", identifier), zap.Error(cerr))
		}
	}
	return found, nil
}

func (r *Resolver) fromCache(ctx context.Context, identifier string) (*Tenant, error) {
	data, err := r.cache.Get(ctx, cacheKey(identifier))
	if err != nil {
		return nil, err
	}
	var t Tenant
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func cacheKey(identifier string) string { return "tenant:" + strings.ToLower(identifier) }

// idShaped: record ids carry a separator or exceed the length threshold;
// everything else is treated as a subdomain.
func (r *Resolver) idShaped(identifier string) bool {
	return strings.ContainsAny(identifier, "-_") || len(identifier) >= r.config.IDLengthThreshold
}

func (r *Resolver) subdomain(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	parts := strings.Split(host, ".")
	// Need at least sub.domain.tld for a subdomain to exist.
	if len(parts) < 3 {
		return ""
	}
	candidate := strings.ToLower(parts[0])
	for _, reserved := range r.config.ReservedSubdomains {
		if candidate == reserved {
			return ""
		}
	}
	return candidate
}

func bearerTenant(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	claims, err := jwt.Decode(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return ""
	}
	return claims.TenantID
}

func (r *Resolver) pathTenant(path string) string {
	for _, prefix := range r.config.PathPrefixes {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		if rest != "" {
			return rest
		}
	}
	return ""
}

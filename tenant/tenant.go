// Package tenant models the isolated church organizations the platform
// partitions data by, and resolves which tenant an inbound request
// belongs to.
package tenant

import (
	"context"
	"errors"
)

// Plan is the subscription tier. Feature flags, not code, gate what a
// plan can do; the tier is informational at this layer.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
)

// Status is the tenant lifecycle state. Only active tenants resolve for
// protected routes.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Tenant is the cached subset of an organization's record that the auth
// core needs: identity, plan, feature flags and opaque settings.
type Tenant struct {
	ID        string          `json:"id"`
	Subdomain string          `json:"subdomain"`
	Name      string          `json:"name"`
	Plan      Plan            `json:"plan"`
	Status    Status          `json:"status"`
	Features  map[string]bool `json:"features"`
	Settings  map[string]any  `json:"settings"`
}

// FeatureEnabled reports whether a feature flag is set true. Absent flags
// read as disabled.
func (t *Tenant) FeatureEnabled(name string) bool {
	if t == nil || t.Features == nil {
		return false
	}
	return t.Features[name]
}

// SettingString returns a string-typed setting, narrowing the opaque blob
// so callers never touch the raw map.
func (t *Tenant) SettingString(key string) (string, bool) {
	if t == nil || t.Settings == nil {
		return "", false
	}
	v, ok := t.Settings[key].(string)
	return v, ok
}

// ErrNotFound is returned by Store lookups with no active match.
var ErrNotFound = errors.New("tenant: not found")

// Store is the credential-store view of tenants. Both lookups filter to
// active tenants only.
type Store interface {
	FindActiveByID(ctx context.Context, id string) (*Tenant, error)
	FindActiveBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
}

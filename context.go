package authcore

import (
	"context"

	"github.com/shepherdcrm/authcore/session"
	"github.com/shepherdcrm/authcore/tenant"
)

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	ctxKeyTenant
	ctxKeyRequestID
)

// WithUser attaches the authenticated user snapshot to the context.
func WithUser(ctx context.Context, u *session.UserSnapshot) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext returns the authenticated user, or nil if the request
// was not authenticated.
func UserFromContext(ctx context.Context) *session.UserSnapshot {
	u, _ := ctx.Value(ctxKeyUser).(*session.UserSnapshot)
	return u
}

// WithTenant attaches the resolved tenant to the context.
func WithTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, ctxKeyTenant, t)
}

// TenantFromContext returns the resolved tenant, or nil when tenant
// resolution did not run or found nothing.
func TenantFromContext(ctx context.Context) *tenant.Tenant {
	t, _ := ctx.Value(ctxKeyTenant).(*tenant.Tenant)
	return t
}

// WithRequestID attaches the request correlation id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext returns the request correlation id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

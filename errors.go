package authcore

import (
	"errors"
	"fmt"
)

// Sentinel errors classified by the HTTP layer. Credential-related
// failures share the same message on purpose: neither a missing account
// nor a wrong password may reveal whether the email exists.
var (
	// ErrTenantRequired: no resolvable active tenant on a protected route (400).
	ErrTenantRequired = errors.New("tenant context required")

	// Authentication failures (401).
	ErrTokenRequired      = errors.New("access token required")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrTenantMismatch     = errors.New("token tenant mismatch")
	ErrUserInactive       = errors.New("user not found or inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked due to repeated failed logins")
	ErrRefreshInvalid     = errors.New("invalid refresh token")

	// Authorization failures (403).
	ErrPermissionDenied = errors.New("insufficient permissions")
	ErrOwnershipDenied  = errors.New("insufficient ownership permissions")
	ErrFeatureDisabled  = errors.New("feature not available on this plan")

	// Validation / conflict (400, 409).
	ErrEmailTaken           = errors.New("email already registered for this tenant")
	ErrResetTokenInvalid    = errors.New("password reset token invalid or expired")
	ErrVerifyTokenInvalid   = errors.New("email verification token invalid")
	ErrRoleInvalid          = errors.New("invalid role")

	// ErrNotFound: referenced record absent (404).
	ErrNotFound = errors.New("not found")

	// ErrUnavailable: a required backend could not be reached (503). The
	// blacklist, refresh slot and lockout checks fail closed through this.
	ErrUnavailable = errors.New("dependency unavailable")
)

// PermissionError is an authorization failure carrying the requirement so
// the 403 body can name the missing permissions.
type PermissionError struct {
	Required []string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("insufficient permissions: requires any of %v", e.Required)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// FeatureError is a feature-gate failure naming the gated feature.
type FeatureError struct {
	Feature string
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("feature %q not available on this plan", e.Feature)
}

func (e *FeatureError) Unwrap() error { return ErrFeatureDisabled }

package httpapi

import (
	"errors"
	"net/http"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/internal/respond"
)

// writeError maps service errors onto the envelope. Every mapping keeps
// the client-facing message generic; the precise cause stays in the
// server logs.
func writeError(w http.ResponseWriter, requestID string, err error) {
	var perr *authcore.PermissionError
	if errors.As(err, &perr) {
		respond.ErrorDetails(w, http.StatusForbidden, requestID,
			"permission_denied", "insufficient permissions",
			map[string]interface{}{"required": perr.Required})
		return
	}

	type mapping struct {
		sentinel error
		status   int
		code     string
		message  string
	}
	mappings := []mapping{
		{authcore.ErrTenantRequired, http.StatusBadRequest, "tenant_required", "could not determine tenant for request"},
		{authcore.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid email or password"},
		{authcore.ErrAccountLocked, http.StatusUnauthorized, "account_locked", "account temporarily locked, try again later"},
		{authcore.ErrTokenRequired, http.StatusUnauthorized, "token_required", "authentication required"},
		{authcore.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked", "token has been revoked"},
		{authcore.ErrTokenInvalid, http.StatusUnauthorized, "token_invalid", "invalid or expired token"},
		{authcore.ErrRefreshInvalid, http.StatusUnauthorized, "refresh_invalid", "invalid refresh token"},
		{authcore.ErrTenantMismatch, http.StatusUnauthorized, "tenant_mismatch", "token does not belong to this tenant"},
		{authcore.ErrUserInactive, http.StatusUnauthorized, "user_inactive", "account is not active"},
		{authcore.ErrPermissionDenied, http.StatusForbidden, "permission_denied", "insufficient permissions"},
		{authcore.ErrOwnershipDenied, http.StatusForbidden, "ownership_denied", "you may only access your own resources"},
		{authcore.ErrFeatureDisabled, http.StatusForbidden, "feature_disabled", "this feature is not included in your plan"},
		{authcore.ErrEmailTaken, http.StatusConflict, "email_taken", "a user with this email already exists"},
		{authcore.ErrRoleInvalid, http.StatusBadRequest, "role_invalid", "unknown role"},
		{authcore.ErrResetTokenInvalid, http.StatusBadRequest, "reset_token_invalid", "invalid or expired reset token"},
		{authcore.ErrVerifyTokenInvalid, http.StatusBadRequest, "verify_token_invalid", "invalid verification token"},
		{authcore.ErrUnavailable, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable"},
	}
	for _, m := range mappings {
		if errors.Is(err, m.sentinel) {
			respond.Error(w, m.status, requestID, m.code, m.message)
			return
		}
	}
	respond.Error(w, http.StatusInternalServerError, requestID, "internal", "internal error")
}

package authcore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore/jwt"
	"github.com/shepherdcrm/authcore/permission"
	"github.com/shepherdcrm/authcore/session"
)

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated. The presented token must match the
// user's stored slot exactly; an older token that was overwritten by a
// newer login is rejected even though its signature still verifies. The
// new access token carries freshly loaded role and permissions, so a role
// change takes effect on the next refresh.
func (s *Service) Refresh(ctx context.Context, tenantID, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrRefreshInvalid
	}

	claims, err := s.tokens.Verify(refreshToken, jwt.TypeRefresh)
	if err != nil {
		return nil, ErrRefreshInvalid
	}
	if tenantID != "" && claims.TenantID != tenantID {
		return nil, ErrTenantMismatch
	}

	stored, err := s.sessions.GetRefresh(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, session.ErrNoRefreshToken) {
			return nil, ErrRefreshInvalid
		}
		// Cannot distinguish a revoked slot from a cache outage, so
		// refuse rather than honor a possibly revoked token.
		return nil, fmt.Errorf("%w: refresh slot lookup: %v", ErrUnavailable, err)
	}
	if stored != refreshToken {
		s.logger.Warn("refresh token does not match stored slot",
			zap.String("user_id", claims.UserID))
		return nil, ErrRefreshInvalid
	}

	user, err := s.users.FindActiveByID(ctx, claims.TenantID, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserInactive
		}
		return nil, fmt.Errorf("%w: user lookup: %v", ErrUnavailable, err)
	}

	perms := permission.Effective(user.Role, user.Permissions)
	access, expiresIn, err := s.tokens.IssueAccess(user.ID, user.TenantID, user.Email, string(user.Role), perms)
	if err != nil {
		return nil, fmt.Errorf("authcore: issue access token: %w", err)
	}
	return &RefreshResult{AccessToken: access, ExpiresIn: expiresIn}, nil
}

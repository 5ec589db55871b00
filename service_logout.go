package authcore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Logout revokes a session: the access token is blacklisted for its
// remaining lifetime, the refresh slot is deleted, and the cached user
// snapshot is invalidated. All three writes complete before Logout
// returns so the token is dead by the time the client sees the response.
// Logout succeeds even when the access token is already expired.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrTokenRequired
	}

	claims, err := s.tokens.Decode(accessToken)
	if err != nil {
		return ErrTokenInvalid
	}

	if claims.ExpiresAt != nil {
		remaining := claims.ExpiresAt.Sub(s.now())
		if remaining > 0 {
			if err := s.sessions.Blacklist(ctx, accessToken, remaining); err != nil {
				return fmt.Errorf("%w: blacklist token: %v", ErrUnavailable, err)
			}
		}
	}
	if err := s.sessions.DeleteRefresh(ctx, claims.UserID); err != nil {
		return fmt.Errorf("%w: delete refresh slot: %v", ErrUnavailable, err)
	}
	if err := s.sessions.InvalidateUser(ctx, claims.UserID); err != nil {
		return fmt.Errorf("%w: invalidate snapshot: %v", ErrUnavailable, err)
	}

	s.logger.Info("logout", zap.String("user_id", claims.UserID), zap.String("tenant_id", claims.TenantID))
	return nil
}

package authcore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// VerifyEmail consumes the verification token mailed at registration and
// marks the address verified. The token is single use.
func (s *Service) VerifyEmail(ctx context.Context, tenantID, token string) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if token == "" {
		return ErrVerifyTokenInvalid
	}

	user, err := s.users.FindByVerificationToken(ctx, tenantID, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrVerifyTokenInvalid
		}
		return fmt.Errorf("%w: verification token lookup: %v", ErrUnavailable, err)
	}

	empty := ""
	verified := true
	upd := UserUpdate{VerificationToken: &empty, EmailVerified: &verified}
	if err := s.users.Update(ctx, tenantID, user.ID, upd); err != nil {
		return fmt.Errorf("%w: mark email verified: %v", ErrUnavailable, err)
	}

	if err := s.sessions.InvalidateUser(ctx, user.ID); err != nil {
		s.logger.Warn("snapshot invalidation failed after verification", zap.Error(err))
	}

	s.logger.Info("email verified",
		zap.String("tenant_id", tenantID),
		zap.String("user_id", user.ID))
	return nil
}

package authcore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore/session"
)

// ChangePassword rotates the password of an authenticated user after
// re-checking the current one. The cached snapshot is invalidated; the
// refresh slot is left alone so the user's other devices stay signed in,
// which is the expected behavior for a voluntary change as opposed to a
// reset.
func (s *Service) ChangePassword(ctx context.Context, actor *session.UserSnapshot, current, next string) error {
	if actor == nil {
		return ErrTokenRequired
	}

	user, err := s.users.FindActiveByID(ctx, actor.TenantID, actor.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserInactive
		}
		return fmt.Errorf("%w: user lookup: %v", ErrUnavailable, err)
	}

	ok, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: verify password: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("authcore: hash password: %w", err)
	}
	if err := s.users.Update(ctx, actor.TenantID, actor.ID, UserUpdate{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("%w: store new password: %v", ErrUnavailable, err)
	}

	if err := s.sessions.InvalidateUser(ctx, actor.ID); err != nil {
		s.logger.Warn("snapshot invalidation failed after password change", zap.Error(err))
	}

	s.logger.Info("password changed",
		zap.String("tenant_id", actor.TenantID),
		zap.String("user_id", actor.ID))
	return nil
}

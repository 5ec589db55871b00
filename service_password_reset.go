package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore/internal/secrets"
	"github.com/shepherdcrm/authcore/notify"
	"github.com/shepherdcrm/authcore/tenant"
)

// ForgotPassword starts a password reset. It always reports success to
// the caller; whether the email exists is only observable by the mailbox
// owner. The generated token is single use and expires after
// Config.ResetTokenTTL.
func (s *Service) ForgotPassword(ctx context.Context, t *tenant.Tenant, email string) error {
	if t == nil {
		return ErrTenantRequired
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.FindActiveByEmail(ctx, t.ID, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("reset lookup failed", zap.Error(err))
		}
		return nil
	}

	token, err := secrets.Token()
	if err != nil {
		s.logger.Error("reset token generation failed", zap.Error(err))
		return nil
	}
	expires := s.now().Add(s.config.ResetTokenTTL)
	upd := UserUpdate{ResetToken: &token, ResetTokenExpires: &expires}
	if err := s.users.Update(ctx, t.ID, user.ID, upd); err != nil {
		s.logger.Error("reset token store failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil
	}

	go func() {
		mail := notify.ResetMail{
			To:         user.Email,
			FirstName:  user.FirstName,
			TenantName: t.Name,
			ResetToken: token,
		}
		if err := s.mailer.SendPasswordReset(context.Background(), mail); err != nil {
			s.logger.Error("reset mail failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}()

	s.logger.Info("password reset requested",
		zap.String("tenant_id", t.ID),
		zap.String("user_id", user.ID))
	return nil
}

// ResetPassword completes a reset with the mailed token. A successful
// reset also marks the email verified, since the token only ever reached
// the mailbox, and revokes the cached snapshot and refresh slot so stale
// sessions re-authenticate.
func (s *Service) ResetPassword(ctx context.Context, tenantID, token, newPassword string) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if token == "" {
		return ErrResetTokenInvalid
	}

	user, err := s.users.FindByResetToken(ctx, tenantID, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("%w: reset token lookup: %v", ErrUnavailable, err)
	}
	if user.ResetTokenExpires.IsZero() || s.now().After(user.ResetTokenExpires) {
		return ErrResetTokenInvalid
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("authcore: hash password: %w", err)
	}

	empty := ""
	verified := true
	upd := UserUpdate{
		PasswordHash:  &hash,
		ResetToken:    &empty,
		EmailVerified: &verified,
	}
	if err := s.users.Update(ctx, tenantID, user.ID, upd); err != nil {
		return fmt.Errorf("%w: store new password: %v", ErrUnavailable, err)
	}

	if err := s.sessions.InvalidateUser(ctx, user.ID); err != nil {
		s.logger.Warn("snapshot invalidation failed after reset", zap.Error(err))
	}
	if err := s.sessions.DeleteRefresh(ctx, user.ID); err != nil {
		s.logger.Warn("refresh revocation failed after reset", zap.Error(err))
	}

	s.logger.Info("password reset completed",
		zap.String("tenant_id", tenantID),
		zap.String("user_id", user.ID))
	return nil
}

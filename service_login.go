package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Login authenticates an email/password pair within a tenant. Lockout is
// checked before the password so that a locked account answers the same
// way whether or not the supplied password is correct. Unknown emails and
// wrong passwords both return ErrInvalidCredentials to keep account
// enumeration blind.
func (s *Service) Login(ctx context.Context, tenantID, email, plaintext string) (*LoginResult, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plaintext == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindActiveByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn a counter increment so unknown emails cost the same
			// as known ones, then answer identically.
			_, _ = s.limiter.RecordFailure(ctx, email, "")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: user lookup: %v", ErrUnavailable, err)
	}

	locked, err := s.limiter.IsLocked(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: lockout check: %v", ErrUnavailable, err)
	}
	if locked {
		s.logger.Warn("login rejected, account locked",
			zap.String("tenant_id", tenantID),
			zap.String("user_id", user.ID))
		return nil, ErrAccountLocked
	}

	ok, err := s.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: verify password: %v", ErrUnavailable, err)
	}
	if !ok {
		nowLocked, lerr := s.limiter.RecordFailure(ctx, email, user.ID)
		if lerr != nil {
			s.logger.Error("failed to record login failure", zap.Error(lerr))
		}
		if nowLocked {
			s.logger.Warn("account locked after repeated failures",
				zap.String("tenant_id", tenantID),
				zap.String("user_id", user.ID))
		}
		return nil, ErrInvalidCredentials
	}

	snap := user.Snapshot()
	pair, err := s.issuePair(ctx, snap)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SaveUser(ctx, snap); err != nil {
		// Cache warm is an optimization; authentication falls back to
		// the user store on a miss.
		s.logger.Warn("failed to cache user snapshot", zap.Error(err))
	}
	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn("failed to reset failure counter", zap.Error(err))
	}

	now := s.now()
	if err := s.users.Update(ctx, tenantID, user.ID, UserUpdate{LastLoginAt: &now}); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("login succeeded",
		zap.String("tenant_id", tenantID),
		zap.String("user_id", user.ID),
		zap.String("role", snap.Role))
	return &LoginResult{User: snap, Tokens: pair}, nil
}

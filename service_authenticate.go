package authcore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore/cache"
	"github.com/shepherdcrm/authcore/jwt"
	"github.com/shepherdcrm/authcore/permission"
	"github.com/shepherdcrm/authcore/session"
)

// Authenticate validates a bearer access token for a request and returns
// the current user view. The blacklist check fails closed: if the cache
// cannot answer, the request is refused rather than risking a revoked
// token being honored. The snapshot cache misses fall through to the user
// store, so a cache flush degrades to extra database reads, not outages.
//
// resolvedTenantID, when non-empty, must match the token's tenant claim.
// A mismatch means a token from one church is being replayed against
// another and is rejected outright.
func (s *Service) Authenticate(ctx context.Context, accessToken, resolvedTenantID string) (*session.UserSnapshot, error) {
	if accessToken == "" {
		return nil, ErrTokenRequired
	}

	claims, err := s.tokens.Verify(accessToken, jwt.TypeAccess)
	if err != nil {
		// The caller sees one rejection; the logs keep the real cause.
		if errors.Is(err, jwt.ErrExpired) {
			s.logger.Debug("access token expired", zap.Error(err))
		} else {
			s.logger.Warn("access token rejected", zap.Error(err))
		}
		return nil, ErrTokenInvalid
	}

	revoked, err := s.sessions.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: blacklist check: %v", ErrUnavailable, err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	if resolvedTenantID != "" && claims.TenantID != resolvedTenantID {
		s.logger.Warn("token tenant does not match request tenant",
			zap.String("token_tenant", claims.TenantID),
			zap.String("request_tenant", resolvedTenantID))
		return nil, ErrTenantMismatch
	}

	snap, err := s.sessions.GetUser(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("snapshot cache read failed", zap.Error(err))
		}
		snap = nil
	}
	if snap == nil {
		user, serr := s.users.FindActiveByID(ctx, claims.TenantID, claims.UserID)
		if serr != nil {
			if errors.Is(serr, ErrNotFound) {
				return nil, ErrUserInactive
			}
			return nil, fmt.Errorf("%w: user lookup: %v", ErrUnavailable, serr)
		}
		snap = user.Snapshot()
		if cerr := s.sessions.SaveUser(ctx, snap); cerr != nil {
			s.logger.Warn("failed to cache user snapshot", zap.Error(cerr))
		}
	}
	if !snap.IsActive {
		return nil, ErrUserInactive
	}

	// Best effort; activity tracking never blocks a request.
	go func() {
		if err := s.sessions.TouchActivity(context.Background(), snap.ID); err != nil {
			s.logger.Debug("activity touch failed", zap.Error(err))
		}
	}()

	return snap, nil
}

// CheckPermission reports whether the snapshot's effective permissions
// satisfy the named permission. Wildcard grants everything.
func (s *Service) CheckPermission(snap *session.UserSnapshot, perm string) bool {
	if snap == nil {
		return false
	}
	return permission.Has(snap.Permissions, perm)
}

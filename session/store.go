// Package session holds the cache-resident artifacts of authenticated
// sessions: user snapshots, the single-slot refresh token per user, the
// access-token blacklist and last-activity markers.
//
// Nothing here is a system of record. Snapshots are performance caches and
// may be lost at any time; the refresh slot, blacklist and lockout state
// are security controls for which the cache is the sole authority, so their
// read errors must fail closed at the caller.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shepherdcrm/authcore/cache"
)

// ErrNoRefreshToken is returned when a user has no live refresh slot.
var ErrNoRefreshToken = errors.New("session: no refresh token on record")

// UserSnapshot is the cached effective user attached to requests: identity
// plus computed permissions. Invalidated explicitly on logout, password
// change and password reset.
type UserSnapshot struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenantId"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"isActive"`
}

// Config bounds the lifetimes of each artifact class.
type Config struct {
	UserTTL     time.Duration // user snapshot cache
	RefreshTTL  time.Duration // refresh slot; equals the refresh token lifetime
	ActivityTTL time.Duration // last-activity marker
}

// DefaultConfig returns the production lifetimes.
func DefaultConfig() Config {
	return Config{
		UserTTL:     15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
		ActivityTTL: 5 * time.Minute,
	}
}

// Store reads and writes session artifacts through the shared cache.
type Store struct {
	cache  cache.Cache
	config Config
}

// NewStore wires a Store over the given cache.
func NewStore(c cache.Cache, cfg Config) *Store {
	return &Store{cache: c, config: cfg}
}

func userKey(id string) string       { return "user:" + id }
func refreshKey(id string) string    { return "refresh:" + id }
func blacklistKey(tok string) string { return "blacklist:" + tok }
func activityKey(id string) string   { return "activity:" + id }

// SaveUser caches the snapshot with the bounded user TTL.
func (s *Store) SaveUser(ctx context.Context, snap *UserSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: marshal user snapshot: %w", err)
	}
	return s.cache.Set(ctx, userKey(snap.ID), string(data), s.config.UserTTL)
}

// GetUser returns the cached snapshot or cache.ErrMiss.
func (s *Store) GetUser(ctx context.Context, userID string) (*UserSnapshot, error) {
	data, err := s.cache.Get(ctx, userKey(userID))
	if err != nil {
		return nil, err
	}
	var snap UserSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("session: unmarshal user snapshot: %w", err)
	}
	return &snap, nil
}

// InvalidateUser drops the cached snapshot.
func (s *Store) InvalidateUser(ctx context.Context, userID string) error {
	return s.cache.Del(ctx, userKey(userID))
}

// SaveRefresh records the user's current refresh token, overwriting any
// prior one. At most one refresh token is live per user; a second login
// silently invalidates the first session's refresh token.
func (s *Store) SaveRefresh(ctx context.Context, userID, token string) error {
	return s.cache.Set(ctx, refreshKey(userID), token, s.config.RefreshTTL)
}

// GetRefresh returns the live refresh token or ErrNoRefreshToken.
func (s *Store) GetRefresh(ctx context.Context, userID string) (string, error) {
	token, err := s.cache.Get(ctx, refreshKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return "", ErrNoRefreshToken
		}
		return "", err
	}
	return token, nil
}

// DeleteRefresh clears the refresh slot.
func (s *Store) DeleteRefresh(ctx context.Context, userID string) error {
	return s.cache.Del(ctx, refreshKey(userID))
}

// Blacklist marks the raw access token revoked for its remaining lifetime.
// After natural expiry the entry is garbage; the TTL keeps the deny-list
// from growing without bound.
func (s *Store) Blacklist(ctx context.Context, token string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	return s.cache.Set(ctx, blacklistKey(token), "revoked", remaining)
}

// IsBlacklisted reports whether the exact token string has been revoked.
// Cache errors propagate so the caller can fail closed.
func (s *Store) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	_, err := s.cache.Get(ctx, blacklistKey(token))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// TouchActivity records a short-TTL last-seen marker. Best effort; callers
// ignore the error.
func (s *Store) TouchActivity(ctx context.Context, userID string) error {
	return s.cache.Set(ctx, activityKey(userID), time.Now().UTC().Format(time.RFC3339), s.config.ActivityTTL)
}

package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore/cache"
	"github.com/shepherdcrm/authcore/internal/ids"
	"github.com/shepherdcrm/authcore/internal/limiters"
	"github.com/shepherdcrm/authcore/jwt"
	"github.com/shepherdcrm/authcore/notify"
	"github.com/shepherdcrm/authcore/password"
	"github.com/shepherdcrm/authcore/session"
)

// Service orchestrates the authentication flows: login with lockout,
// token refresh, logout, registration, password reset, and per-request
// authentication. Construct it once with New and share it; all methods
// are safe for concurrent use.
type Service struct {
	users    UserStore
	sessions *session.Store
	limiter  *limiters.LoginLimiter
	tokens   *jwt.Manager
	hasher   *password.Hasher
	mailer   notify.Mailer
	config   Config
	logger   *zap.Logger
	idgen    func() string
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the structured logger. Defaults to zap.NewNop.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMailer sets the outbound mail provider. Defaults to a no-op.
func WithMailer(m notify.Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

// WithIDGenerator overrides user id generation, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.idgen = fn }
}

// WithClock overrides the wall clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.limiter.WithClock(now)
		s.tokens.WithClock(now)
	}
}

// New builds a Service from its stores and validated config.
func New(cfg Config, users UserStore, c cache.Cache, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("authcore: user store is required")
	}
	if c == nil {
		return nil, errors.New("authcore: cache is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tokens, err := jwt.NewManager(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("authcore: jwt: %w", err)
	}
	hasher, err := password.New(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("authcore: password: %w", err)
	}
	s := &Service{
		users:    users,
		sessions: session.NewStore(c, cfg.Session),
		limiter:  limiters.NewLoginLimiter(c, cfg.Login),
		tokens:   tokens,
		hasher:   hasher,
		mailer:   notify.Noop{},
		config:   cfg,
		logger:   zap.NewNop(),
		idgen:    ids.New,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sessions exposes the session store for the HTTP layer's activity
// tracking.
func (s *Service) Sessions() *session.Store { return s.sessions }

// issuePair mints an access/refresh pair and persists the single refresh
// slot before returning. The slot write is synchronous so a login response
// never references a refresh token the store does not know about.
func (s *Service) issuePair(ctx context.Context, snap *session.UserSnapshot) (jwt.Pair, error) {
	pair, err := s.tokens.IssuePair(snap.ID, snap.TenantID, snap.Email, snap.Role, snap.Permissions)
	if err != nil {
		return jwt.Pair{}, fmt.Errorf("authcore: issue tokens: %w", err)
	}
	if err := s.sessions.SaveRefresh(ctx, snap.ID, pair.RefreshToken); err != nil {
		return jwt.Pair{}, fmt.Errorf("%w: save refresh slot: %v", ErrUnavailable, err)
	}
	return pair, nil
}

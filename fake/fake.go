// Package fake provides in-memory implementations of the authcore store
// and mailer interfaces for testing without Postgres or SMTP.
package fake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/notify"
	"github.com/shepherdcrm/authcore/tenant"
)

// UserStore is an in-memory authcore.UserStore. The zero value is not
// usable; construct with NewUserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*authcore.User // id → user
	// Err, when set, is returned by every method to simulate outages.
	Err error
}

var _ authcore.UserStore = (*UserStore)(nil)

func NewUserStore(users ...*authcore.User) *UserStore {
	s := &UserStore{users: make(map[string]*authcore.User)}
	for _, u := range users {
		s.Put(u)
	}
	return s
}

// Put inserts or replaces a user directly, bypassing Create semantics.
func (s *UserStore) Put(u *authcore.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	cp.Email = strings.ToLower(cp.Email)
	s.users[cp.ID] = &cp
}

// Get returns the current stored state of a user, or nil.
func (s *UserStore) Get(id string) *authcore.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (s *UserStore) FindActiveByEmail(_ context.Context, tenantID, email string) (*authcore.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.TenantID == tenantID && u.Email == email && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, authcore.ErrNotFound
}

func (s *UserStore) FindActiveByID(_ context.Context, tenantID, id string) (*authcore.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || u.TenantID != tenantID || !u.IsActive {
		return nil, authcore.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) FindByResetToken(_ context.Context, tenantID, token string) (*authcore.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.TenantID == tenantID && token != "" && u.ResetToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, authcore.ErrNotFound
}

func (s *UserStore) FindByVerificationToken(_ context.Context, tenantID, token string) (*authcore.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.TenantID == tenantID && token != "" && u.VerificationToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, authcore.ErrNotFound
}

func (s *UserStore) Create(_ context.Context, u *authcore.User) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range s.users {
		if existing.TenantID == u.TenantID && existing.Email == email {
			return authcore.ErrEmailTaken
		}
	}
	cp := *u
	cp.Email = email
	s.users[cp.ID] = &cp
	return nil
}

func (s *UserStore) Update(_ context.Context, tenantID, id string, upd authcore.UserUpdate) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.TenantID != tenantID {
		return authcore.ErrNotFound
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.ResetToken != nil {
		u.ResetToken = *upd.ResetToken
		if *upd.ResetToken == "" {
			u.ResetTokenExpires = time.Time{}
		}
	}
	if upd.ResetTokenExpires != nil {
		u.ResetTokenExpires = *upd.ResetTokenExpires
	}
	if upd.VerificationToken != nil {
		u.VerificationToken = *upd.VerificationToken
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.LastLoginAt != nil {
		t := *upd.LastLoginAt
		u.LastLoginAt = &t
	}
	return nil
}

// TenantStore is an in-memory tenant.Store.
type TenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*tenant.Tenant // id → tenant
	Err     error
}

var _ tenant.Store = (*TenantStore)(nil)

func NewTenantStore(tenants ...*tenant.Tenant) *TenantStore {
	s := &TenantStore{tenants: make(map[string]*tenant.Tenant)}
	for _, t := range tenants {
		s.Put(t)
	}
	return s
}

func (s *TenantStore) Put(t *tenant.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tenants[cp.ID] = &cp
}

func (s *TenantStore) FindActiveByID(_ context.Context, id string) (*tenant.Tenant, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok || t.Status != tenant.StatusActive {
		return nil, tenant.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *TenantStore) FindActiveBySubdomain(_ context.Context, subdomain string) (*tenant.Tenant, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	subdomain = strings.ToLower(subdomain)
	for _, t := range s.tenants {
		if t.Subdomain == subdomain && t.Status == tenant.StatusActive {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tenant.ErrNotFound
}

// Mailer records sent mail for assertions.
type Mailer struct {
	mu       sync.Mutex
	Welcomes []notify.WelcomeMail
	Resets   []notify.ResetMail
	Err      error
	// Sent is closed-over by tests that need to wait for async delivery.
	Sent chan struct{}
}

var _ notify.Mailer = (*Mailer)(nil)

func NewMailer() *Mailer {
	return &Mailer{Sent: make(chan struct{}, 16)}
}

func (m *Mailer) SendWelcome(_ context.Context, mail notify.WelcomeMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Welcomes = append(m.Welcomes, mail)
	m.signal()
	return nil
}

func (m *Mailer) SendPasswordReset(_ context.Context, mail notify.ResetMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Resets = append(m.Resets, mail)
	m.signal()
	return nil
}

func (m *Mailer) signal() {
	if m.Sent != nil {
		select {
		case m.Sent <- struct{}{}:
		default:
		}
	}
}

// LastWelcome returns the most recent welcome mail, or nil.
func (m *Mailer) LastWelcome() *notify.WelcomeMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Welcomes) == 0 {
		return nil
	}
	mail := m.Welcomes[len(m.Welcomes)-1]
	return &mail
}

// LastReset returns the most recent reset mail, or nil.
func (m *Mailer) LastReset() *notify.ResetMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Resets) == 0 {
		return nil
	}
	mail := m.Resets[len(m.Resets)-1]
	return &mail
}

package authcore

import (
	"context"
	"time"

	"github.com/shepherdcrm/authcore/jwt"
	"github.com/shepherdcrm/authcore/permission"
	"github.com/shepherdcrm/authcore/session"
)

// User is a tenant-scoped account. Email is unique within a tenant and
// stored lowercased. The password hash and token columns never serialize.
type User struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenantId"`
	Email             string          `json:"email"`
	PasswordHash      string          `json:"-"`
	FirstName         string          `json:"firstName"`
	LastName          string          `json:"lastName"`
	Role              permission.Role `json:"role"`
	Permissions       []string        `json:"permissions"` // explicit grants, may be empty
	IsActive          bool            `json:"isActive"`
	EmailVerified     bool            `json:"emailVerified"`
	ResetToken        string          `json:"-"`
	ResetTokenExpires time.Time       `json:"-"`
	VerificationToken string          `json:"-"`
	LastLoginAt       *time.Time      `json:"lastLoginAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Snapshot builds the cache/request view of the user with effective
// permissions computed.
func (u *User) Snapshot() *session.UserSnapshot {
	return &session.UserSnapshot{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        string(u.Role),
		Permissions: permission.Effective(u.Role, u.Permissions),
		IsActive:    u.IsActive,
	}
}

// UserUpdate is a partial update; nil fields are left untouched. Pointer
// to an empty string clears the column.
type UserUpdate struct {
	PasswordHash      *string
	ResetToken        *string
	ResetTokenExpires *time.Time
	VerificationToken *string
	EmailVerified     *bool
	IsActive          *bool
	LastLoginAt       *time.Time
}

// UserStore is the credential-store interface for tenant users. The
// relational database behind it is authoritative; every lookup here is
// tenant-scoped to preserve isolation.
type UserStore interface {
	// FindActiveByEmail returns the active user for a lowercased email
	// within a tenant, or ErrNotFound.
	FindActiveByEmail(ctx context.Context, tenantID, email string) (*User, error)
	// FindActiveByID returns the active user by id within a tenant, or
	// ErrNotFound.
	FindActiveByID(ctx context.Context, tenantID, id string) (*User, error)
	// FindByResetToken returns the user holding the reset token, or
	// ErrNotFound. Expiry is checked by the caller.
	FindByResetToken(ctx context.Context, tenantID, token string) (*User, error)
	// FindByVerificationToken returns the user holding the email
	// verification token, or ErrNotFound.
	FindByVerificationToken(ctx context.Context, tenantID, token string) (*User, error)
	// Create persists a new user; a duplicate (tenantId, email) pair
	// returns ErrEmailTaken.
	Create(ctx context.Context, u *User) error
	// Update applies a partial update to the user row.
	Update(ctx context.Context, tenantID, id string, upd UserUpdate) error
}

// LoginResult is the successful login payload: the effective user view and
// a fresh token pair. The HTTP layer adds the resolved tenant.
type LoginResult struct {
	User   *session.UserSnapshot `json:"user"`
	Tokens jwt.Pair              `json:"tokens"`
}

// RefreshResult carries the newly minted access token. The refresh token
// is not rotated by the refresh operation.
type RefreshResult struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// RegisterInput is the admin-invoked registration request.
type RegisterInput struct {
	Email       string
	FirstName   string
	LastName    string
	Role        permission.Role
	Permissions []string
}

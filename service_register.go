package authcore

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore/internal/secrets"
	"github.com/shepherdcrm/authcore/notify"
	"github.com/shepherdcrm/authcore/permission"
	"github.com/shepherdcrm/authcore/session"
	"github.com/shepherdcrm/authcore/tenant"
)

// Register creates a user within the actor's tenant. Only admins may
// register users, and only a super admin may mint another super admin. A
// temporary password is generated server side and delivered by mail; it
// exists in memory only between generation and the mail call.
func (s *Service) Register(ctx context.Context, actor *session.UserSnapshot, t *tenant.Tenant, in RegisterInput) (*User, error) {
	if actor == nil {
		return nil, ErrTokenRequired
	}
	role := permission.Role(actor.Role)
	if role != permission.RoleAdmin && role != permission.RoleSuperAdmin {
		// Role check, not a permission check: an explicit users:manage
		// grant on a non-admin does not open account creation.
		return nil, &PermissionError{Required: []string{"users:manage"}}
	}
	if !in.Role.Valid() {
		return nil, ErrRoleInvalid
	}
	if in.Role == permission.RoleSuperAdmin && role != permission.RoleSuperAdmin {
		return nil, &PermissionError{Required: []string{"users:manage"}}
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("authcore: email is required")
	}

	temp, err := secrets.TempPassword()
	if err != nil {
		return nil, fmt.Errorf("authcore: generate temp password: %w", err)
	}
	hash, err := s.hasher.Hash(temp)
	if err != nil {
		return nil, fmt.Errorf("authcore: hash temp password: %w", err)
	}
	verify, err := secrets.Token()
	if err != nil {
		return nil, fmt.Errorf("authcore: generate verification token: %w", err)
	}

	now := s.now()
	user := &User{
		ID:                s.idgen(),
		TenantID:          actor.TenantID,
		Email:             email,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		Role:              in.Role,
		Permissions:       in.Permissions,
		IsActive:          true,
		VerificationToken: verify,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	tenantName := actor.TenantID
	if t != nil {
		tenantName = t.Name
	}
	// Delivery happens off the request path; registration has already
	// committed and a mail failure only costs a resend.
	go func() {
		mail := notify.WelcomeMail{
			To:                email,
			FirstName:         user.FirstName,
			TenantName:        tenantName,
			TempPassword:      temp,
			VerificationToken: verify,
		}
		if err := s.mailer.SendWelcome(context.Background(), mail); err != nil {
			s.logger.Error("welcome mail failed",
				zap.String("user_id", user.ID),
				zap.Error(err))
		}
	}()

	s.logger.Info("user registered",
		zap.String("tenant_id", user.TenantID),
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("actor_id", actor.ID))
	return user, nil
}

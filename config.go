package authcore

import (
	"fmt"
	"time"

	"github.com/shepherdcrm/authcore/internal/limiters"
	"github.com/shepherdcrm/authcore/jwt"
	"github.com/shepherdcrm/authcore/password"
	"github.com/shepherdcrm/authcore/session"
)

// Config collects the tunables for the auth service. Zero values are
// filled in from the defaults by Validate, except for JWT key material
// which must be supplied.
type Config struct {
	JWT      jwt.Config
	Password password.Config
	Login    limiters.LoginConfig
	Session  session.Config

	// ResetTokenTTL bounds how long a password reset link stays valid.
	ResetTokenTTL time.Duration
}

// DefaultConfig returns the production defaults. JWT key material is left
// empty and must be set before use.
func DefaultConfig() Config {
	return Config{
		JWT:           jwt.Config{AccessTTL: 15 * time.Minute, RefreshTTL: 7 * 24 * time.Hour, SigningMethod: jwt.MethodHS256},
		Password:      password.DefaultConfig(),
		Login:         limiters.DefaultLoginConfig(),
		Session:       session.DefaultConfig(),
		ResetTokenTTL: time.Hour,
	}
}

// Validate fills unset durations from the defaults and rejects
// inconsistent settings.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.ResetTokenTTL <= 0 {
		c.ResetTokenTTL = def.ResetTokenTTL
	}
	if c.Login.Threshold <= 0 {
		c.Login.Threshold = def.Login.Threshold
	}
	if c.Login.Window <= 0 {
		c.Login.Window = def.Login.Window
	}
	if c.Login.LockoutDuration <= 0 {
		c.Login.LockoutDuration = def.Login.LockoutDuration
	}
	if c.Session.UserTTL <= 0 {
		c.Session.UserTTL = def.Session.UserTTL
	}
	if c.Session.RefreshTTL <= 0 {
		c.Session.RefreshTTL = def.Session.RefreshTTL
	}
	if c.Session.ActivityTTL <= 0 {
		c.Session.ActivityTTL = def.Session.ActivityTTL
	}
	if c.JWT.AccessTTL <= 0 {
		c.JWT.AccessTTL = def.JWT.AccessTTL
	}
	if c.JWT.RefreshTTL <= 0 {
		c.JWT.RefreshTTL = def.JWT.RefreshTTL
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return fmt.Errorf("authcore: refresh ttl %s must exceed access ttl %s", c.JWT.RefreshTTL, c.JWT.AccessTTL)
	}
	if c.Session.RefreshTTL < c.JWT.RefreshTTL {
		return fmt.Errorf("authcore: refresh slot ttl %s must cover token ttl %s", c.Session.RefreshTTL, c.JWT.RefreshTTL)
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/permission"
)

// UserStore implements authcore.UserStore on Postgres. Every query is
// tenant-scoped; there is deliberately no lookup that crosses tenants.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ authcore.UserStore = (*UserStore)(nil)

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, tenant_id, email, password_hash, first_name, last_name,
	role, permissions, is_active, email_verified,
	coalesce(reset_token, ''), coalesce(reset_token_expires, 'epoch'::timestamptz),
	coalesce(verification_token, ''), last_login_at, created_at, updated_at`

func (s *UserStore) FindActiveByEmail(ctx context.Context, tenantID, email string) (*authcore.User, error) {
	q := `select ` + userColumns + ` from users
		where tenant_id = $1 and email = $2 and is_active`
	return s.scanOne(s.pool.QueryRow(ctx, q, tenantID, strings.ToLower(email)))
}

func (s *UserStore) FindActiveByID(ctx context.Context, tenantID, id string) (*authcore.User, error) {
	q := `select ` + userColumns + ` from users
		where tenant_id = $1 and id = $2 and is_active`
	return s.scanOne(s.pool.QueryRow(ctx, q, tenantID, id))
}

func (s *UserStore) FindByResetToken(ctx context.Context, tenantID, token string) (*authcore.User, error) {
	q := `select ` + userColumns + ` from users
		where tenant_id = $1 and reset_token = $2 and reset_token <> ''`
	return s.scanOne(s.pool.QueryRow(ctx, q, tenantID, token))
}

func (s *UserStore) FindByVerificationToken(ctx context.Context, tenantID, token string) (*authcore.User, error) {
	q := `select ` + userColumns + ` from users
		where tenant_id = $1 and verification_token = $2 and verification_token <> ''`
	return s.scanOne(s.pool.QueryRow(ctx, q, tenantID, token))
}

func (s *UserStore) Create(ctx context.Context, u *authcore.User) error {
	q := `insert into users
		(id, tenant_id, email, password_hash, first_name, last_name,
		 role, permissions, is_active, email_verified, verification_token,
		 created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := s.pool.Exec(ctx, q,
		u.ID, u.TenantID, strings.ToLower(u.Email), u.PasswordHash,
		u.FirstName, u.LastName, string(u.Role), u.Permissions,
		u.IsActive, u.EmailVerified, nullable(u.VerificationToken),
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return authcore.ErrEmailTaken
		}
		return fmt.Errorf("postgres: create user: %w", err)
	}
	return nil
}

func (s *UserStore) Update(ctx context.Context, tenantID, id string, upd authcore.UserUpdate) error {
	set := []string{"updated_at = now()"}
	args := []interface{}{tenantID, id}
	add := func(col string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.ResetToken != nil {
		add("reset_token", nullable(*upd.ResetToken))
		if *upd.ResetToken == "" {
			add("reset_token_expires", nil)
		}
	}
	if upd.ResetTokenExpires != nil {
		add("reset_token_expires", *upd.ResetTokenExpires)
	}
	if upd.VerificationToken != nil {
		add("verification_token", nullable(*upd.VerificationToken))
	}
	if upd.EmailVerified != nil {
		add("email_verified", *upd.EmailVerified)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.LastLoginAt != nil {
		add("last_login_at", *upd.LastLoginAt)
	}

	q := fmt.Sprintf(`update users set %s where tenant_id = $1 and id = $2`,
		strings.Join(set, ", "))
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("postgres: update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrNotFound
	}
	return nil
}

func (s *UserStore) scanOne(row pgx.Row) (*authcore.User, error) {
	var u authcore.User
	var role string
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &role, &u.Permissions,
		&u.IsActive, &u.EmailVerified,
		&u.ResetToken, &u.ResetTokenExpires, &u.VerificationToken,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authcore.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan user: %w", err)
	}
	u.Role = permission.Role(role)
	return &u, nil
}

// nullable maps "" to NULL so empty tokens do not collide on a partial
// unique index.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

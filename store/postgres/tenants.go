package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shepherdcrm/authcore/tenant"
)

// TenantStore implements tenant.Store on Postgres. Only active tenants
// are visible here; suspended ones behave exactly like unknown ones.
type TenantStore struct {
	pool *pgxpool.Pool
}

var _ tenant.Store = (*TenantStore)(nil)

func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

const tenantColumns = `id, subdomain, name, plan, status, features, settings`

func (s *TenantStore) FindActiveByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	q := `select ` + tenantColumns + ` from tenants where id = $1 and status = 'active'`
	return s.scanOne(s.pool.QueryRow(ctx, q, id))
}

func (s *TenantStore) FindActiveBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	q := `select ` + tenantColumns + ` from tenants where subdomain = $1 and status = 'active'`
	return s.scanOne(s.pool.QueryRow(ctx, q, strings.ToLower(subdomain)))
}

func (s *TenantStore) scanOne(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var plan, status string
	var features, settings []byte
	err := row.Scan(&t.ID, &t.Subdomain, &t.Name, &plan, &status, &features, &settings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan tenant: %w", err)
	}
	t.Plan = tenant.Plan(plan)
	t.Status = tenant.Status(status)
	if len(features) > 0 {
		if err := json.Unmarshal(features, &t.Features); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal tenant features: %w", err)
		}
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal tenant settings: %w", err)
		}
	}
	return &t, nil
}

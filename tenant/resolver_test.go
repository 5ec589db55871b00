package tenant

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shepherdcrm/authcore/cache"
	"github.com/shepherdcrm/authcore/jwt"
)

type fakeStore struct {
	byID        map[string]*Tenant
	bySubdomain map[string]*Tenant
	idCalls     int
	subCalls    int
	err         error
}

func (f *fakeStore) FindActiveByID(_ context.Context, id string) (*Tenant, error) {
	f.idCalls++
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.byID[id]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) FindActiveBySubdomain(_ context.Context, sub string) (*Tenant, error) {
	f.subCalls++
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.bySubdomain[sub]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func grace() *Tenant {
	return &Tenant{
		ID:        "ten_01HZX3GRACE",
		Subdomain: "grace",
		Name:      "Grace Community",
		Plan:      PlanStandard,
		Status:    StatusActive,
		Features:  map[string]bool{"aiChat": true},
	}
}

func newTestResolver(t *testing.T, store Store) *Resolver {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewResolver(store, cache.NewRedis(client, "t:"), DefaultResolverConfig(), nil)
}

func TestIdentifySubdomainWins(t *testing.T) {
	r := newTestResolver(t, &fakeStore{})

	req := httptest.NewRequest("GET", "/api/events", nil)
	req.Host = "grace.shepherd.app"
	req.Header.Set("X-Tenant-ID", "other")

	if got := r.Identify(req); got != "grace" {
		t.Fatalf("Identify = %q, want grace", got)
	}
}

func TestIdentifyReservedSubdomainFallsBack(t *testing.T) {
	r := newTestResolver(t, &fakeStore{})

	req := httptest.NewRequest("GET", "/api/events", nil)
	req.Host = "api.shepherd.app"
	req.Header.Set("X-Tenant-ID", "grace")

	if got := r.Identify(req); got != "grace" {
		t.Fatalf("Identify = %q, want header value grace", got)
	}
}

func TestIdentifyBearerClaim(t *testing.T) {
	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("some-secret"),
	})
	if err != nil {
		t.Fatalf("jwt.NewManager: %v", err)
	}
	pair, err := m.IssuePair("usr_1", "ten_01HZX3GRACE", "a@b.com", "staff", nil)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	r := newTestResolver(t, &fakeStore{})
	req := httptest.NewRequest("GET", "/api/events", nil)
	req.Host = "localhost:8080"
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	if got := r.Identify(req); got != "ten_01HZX3GRACE" {
		t.Fatalf("Identify = %q, want token tenant claim", got)
	}
}

func TestIdentifyWidgetPath(t *testing.T) {
	r := newTestResolver(t, &fakeStore{})
	req := httptest.NewRequest("GET", "/api/public/widget/ten_42/events", nil)
	req.Host = "localhost:8080"

	if got := r.Identify(req); got != "ten_42" {
		t.Fatalf("Identify = %q, want ten_42", got)
	}
}

func TestIdentifyNothing(t *testing.T) {
	r := newTestResolver(t, &fakeStore{})
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Host = "localhost:8080"

	if got := r.Identify(req); got != "" {
		t.Fatalf("Identify = %q, want empty", got)
	}
}

func TestResolveSubdomainShape(t *testing.T) {
	store := &fakeStore{bySubdomain: map[string]*Tenant{"grace": grace()}}
	r := newTestResolver(t, store)

	got, err := r.Resolve(context.Background(), "grace")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.ID != "ten_01HZX3GRACE" {
		t.Fatalf("Resolve = %+v", got)
	}
	if store.subCalls != 1 || store.idCalls != 0 {
		t.Fatalf("wrong lookup shape: sub=%d id=%d", store.subCalls, store.idCalls)
	}
}

func TestResolveIDShape(t *testing.T) {
	store := &fakeStore{byID: map[string]*Tenant{"ten_01HZX3GRACE": grace()}}
	r := newTestResolver(t, store)

	got, err := r.Resolve(context.Background(), "ten_01HZX3GRACE")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.Subdomain != "grace" {
		t.Fatalf("Resolve = %+v", got)
	}
	if store.idCalls != 1 {
		t.Fatalf("expected id-shaped lookup, got sub=%d id=%d", store.subCalls, store.idCalls)
	}
}

func TestResolveCachesResult(t *testing.T) {
	store := &fakeStore{bySubdomain: map[string]*Tenant{"grace": grace()}}
	r := newTestResolver(t, store)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "grace"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, err := r.Resolve(ctx, "grace"); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if store.subCalls != 1 {
		t.Fatalf("store hit %d times, want 1 (second read from cache)", store.subCalls)
	}
}

func TestResolveUnknownIsNilNotError(t *testing.T) {
	r := newTestResolver(t, &fakeStore{})
	got, err := r.Resolve(context.Background(), "nosuch")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != nil {
		t.Fatalf("Resolve = %+v, want nil", got)
	}
}

func TestResolveStoreFailurePropagates(t *testing.T) {
	r := newTestResolver(t, &fakeStore{err: errors.New("pg down")})
	if _, err := r.Resolve(context.Background(), "grace"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestFeatureEnabled(t *testing.T) {
	tn := grace()
	if !tn.FeatureEnabled("aiChat") {
		t.Fatal("aiChat should be enabled")
	}
	if tn.FeatureEnabled("payments") {
		t.Fatal("absent flag should read disabled")
	}
	var nilTenant *Tenant
	if nilTenant.FeatureEnabled("aiChat") {
		t.Fatal("nil tenant must fail closed")
	}
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/session"
	"github.com/shepherdcrm/authcore/tenant"
)

type stubAuth struct {
	snap *session.UserSnapshot
	err  error
	// seen records the tenant id passed in.
	seen string
}

func (s *stubAuth) Authenticate(_ context.Context, _ string, tenantID string) (*session.UserSnapshot, error) {
	s.seen = tenantID
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func okHandler(t *testing.T, gotUser **session.UserSnapshot) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotUser != nil {
			*gotUser = authcore.UserFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return env.Error.Code
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var captured string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = authcore.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if captured == "" {
		t.Fatal("no request id in context")
	}
	if rec.Header().Get("X-Request-ID") != captured {
		t.Fatal("header does not match context id")
	}
}

func TestRequestIDHonorsClientHeader(t *testing.T) {
	var captured string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = authcore.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-chosen")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if captured != "client-chosen" {
		t.Fatalf("got %q", captured)
	}
}

func TestAuthenticateAttachesUser(t *testing.T) {
	auth := &stubAuth{snap: &session.UserSnapshot{ID: "u1", TenantID: "tn1", Role: "member", IsActive: true}}
	var got *session.UserSnapshot
	h := Authenticate(auth)(okHandler(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	req = req.WithContext(authcore.WithTenant(req.Context(), &tenant.Tenant{ID: "tn1"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got == nil || got.ID != "u1" {
		t.Fatalf("user not attached: %+v", got)
	}
	if auth.seen != "tn1" {
		t.Fatalf("tenant not threaded through: %q", auth.seen)
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	h := Authenticate(&stubAuth{})(okHandler(t, nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := decodeError(t, rec); code != "token_required" {
		t.Fatalf("code = %q", code)
	}
}

func TestAuthenticateCacheOutageIs503(t *testing.T) {
	auth := &stubAuth{err: authcore.ErrUnavailable}
	h := Authenticate(auth)(okHandler(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestOptionalAuthenticateAnonymousPasses(t *testing.T) {
	var got *session.UserSnapshot
	h := OptionalAuthenticate(zap.NewNop(), &stubAuth{})(okHandler(t, &got))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got != nil {
		t.Fatal("no user expected")
	}
}

func TestOptionalAuthenticateBadTokenPassesAnonymously(t *testing.T) {
	var got *session.UserSnapshot
	h := OptionalAuthenticate(zap.NewNop(), &stubAuth{err: authcore.ErrTokenInvalid})(okHandler(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired-or-garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want anonymous pass-through", rec.Code)
	}
	if got != nil {
		t.Fatalf("user attached from a bad token: %+v", got)
	}
}

func TestOptionalAuthenticateBackendOutagePassesAnonymously(t *testing.T) {
	var got *session.UserSnapshot
	h := OptionalAuthenticate(zap.NewNop(), &stubAuth{err: authcore.ErrUnavailable})(okHandler(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got != nil {
		t.Fatal("no user expected")
	}
}

func withUser(req *http.Request, snap *session.UserSnapshot) *http.Request {
	return req.WithContext(authcore.WithUser(req.Context(), snap))
}

func TestRequirePermissionAllowsHolder(t *testing.T) {
	h := RequirePermission(zap.NewNop(), "members:write")(okHandler(t, nil))
	req := withUser(httptest.NewRequest(http.MethodGet, "/", nil), &session.UserSnapshot{
		ID: "u1", Role: "staff", Permissions: []string{"members:read", "members:write"},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequirePermissionAnyOf(t *testing.T) {
	h := RequirePermission(zap.NewNop(), "events:write", "events:manage")(okHandler(t, nil))
	req := withUser(httptest.NewRequest(http.MethodGet, "/", nil), &session.UserSnapshot{
		ID: "u1", Role: "staff", Permissions: []string{"events:manage"},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequirePermissionDenied(t *testing.T) {
	h := RequirePermission(zap.NewNop(), "members:write")(okHandler(t, nil))
	req := withUser(httptest.NewRequest(http.MethodGet, "/", nil), &session.UserSnapshot{
		ID: "u1", Role: "member", Permissions: []string{"members:read"},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	var env struct {
		Error *struct {
			Code    string `json:"code"`
			Details struct {
				Required []string `json:"required"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error == nil || env.Error.Code != "permission_denied" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if len(env.Error.Details.Required) != 1 || env.Error.Details.Required[0] != "members:write" {
		t.Fatalf("required = %v, want the missing permission named", env.Error.Details.Required)
	}
}

func TestRequirePermissionSuperAdminBypass(t *testing.T) {
	h := RequirePermission(zap.NewNop(), "members:write")(okHandler(t, nil))
	req := withUser(httptest.NewRequest(http.MethodGet, "/", nil), &session.UserSnapshot{
		ID: "u1", Role: "super_admin", Permissions: []string{"*"},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequirePermissionNoUserIs401(t *testing.T) {
	h := RequirePermission(zap.NewNop(), "members:write")(okHandler(t, nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for missing auth", rec.Code)
	}
}

func TestRequireOwnership(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /users/{id}", RequireOwnership("id")(okHandler(t, nil)))

	cases := []struct {
		name string
		snap *session.UserSnapshot
		path string
		want int
	}{
		{"own resource", &session.UserSnapshot{ID: "u1", Role: "member"}, "/users/u1", http.StatusOK},
		{"other resource", &session.UserSnapshot{ID: "u1", Role: "member"}, "/users/u2", http.StatusForbidden},
		{"admin override", &session.UserSnapshot{ID: "u1", Role: "admin"}, "/users/u2", http.StatusOK},
		{"pastor override", &session.UserSnapshot{ID: "u1", Role: "pastor"}, "/users/u2", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withUser(httptest.NewRequest(http.MethodGet, tc.path, nil), tc.snap)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestRequireFeature(t *testing.T) {
	h := RequireFeature("online_giving")(okHandler(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(authcore.WithTenant(req.Context(), &tenant.Tenant{
		ID: "tn1", Features: map[string]bool{"online_giving": true},
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("enabled feature: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(authcore.WithTenant(req.Context(), &tenant.Tenant{ID: "tn1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("absent feature: status = %d", rec.Code)
	}
	if code := decodeError(t, rec); code != "feature_disabled" {
		t.Fatalf("code = %q", code)
	}
}

func TestRateLimiterThrottles(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: rate.Limit(1), Burst: 2, IdleTTL: time.Minute})
	defer rl.Close()
	h := rl.Middleware(okHandler(t, nil))

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", last)
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh client: status = %d", rec.Code)
	}
}

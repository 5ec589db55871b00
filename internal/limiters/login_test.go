package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shepherdcrm/authcore/cache"
)

func newTestLimiter(t *testing.T, cfg LoginConfig) (*miniredis.Miniredis, *LoginLimiter) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewLoginLimiter(cache.NewRedis(client, "t:"), cfg)
}

func TestThresholdSetsLockout(t *testing.T) {
	_, l := newTestLimiter(t, DefaultLoginConfig())
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		locked, err := l.RecordFailure(ctx, "A@B.com", "usr_1")
		if err != nil {
			t.Fatalf("RecordFailure %d: %v", i, err)
		}
		if locked {
			t.Fatalf("locked after %d failures", i)
		}
	}

	locked, err := l.RecordFailure(ctx, "a@b.com", "usr_1")
	if err != nil {
		t.Fatalf("RecordFailure 5: %v", err)
	}
	if !locked {
		t.Fatal("fifth failure should lock the account")
	}

	isLocked, err := l.IsLocked(ctx, "usr_1")
	if err != nil || !isLocked {
		t.Fatalf("IsLocked = %v, %v", isLocked, err)
	}
}

func TestCounterIsEmailCaseInsensitive(t *testing.T) {
	_, l := newTestLimiter(t, DefaultLoginConfig())
	ctx := context.Background()

	_, _ = l.RecordFailure(ctx, "Ada@Church.org", "")
	_, _ = l.RecordFailure(ctx, "ada@church.org", "")

	count, err := l.Failures(ctx, "ADA@CHURCH.ORG")
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if count != 2 {
		t.Fatalf("Failures = %d, want 2", count)
	}
}

func TestUnknownUserIncrementsCounterWithoutLock(t *testing.T) {
	mr, l := newTestLimiter(t, DefaultLoginConfig())
	ctx := context.Background()

	// No user id: counter still advances but no lockout flag can be set.
	for i := 0; i < 6; i++ {
		locked, err := l.RecordFailure(ctx, "ghost@b.com", "")
		if err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
		if locked {
			t.Fatal("cannot lock an unknown user")
		}
	}
	for _, k := range mr.Keys() {
		if k == "t:lockout:" {
			t.Fatal("lockout flag written for empty user id")
		}
	}
}

func TestWindowAndLockoutExpireIndependently(t *testing.T) {
	cfg := LoginConfig{Threshold: 5, Window: 15 * time.Minute, LockoutDuration: 30 * time.Minute}
	mr, l := newTestLimiter(t, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := l.RecordFailure(ctx, "a@b.com", "usr_1"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	// 16 minutes in: the counter window has expired, the lockout has not.
	mr.FastForward(16 * time.Minute)
	count, err := l.Failures(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if count != 0 {
		t.Fatalf("counter = %d after window expiry, want 0", count)
	}
	locked, err := l.IsLocked(ctx, "usr_1")
	if err != nil || !locked {
		t.Fatalf("lockout should outlive the counter window: %v, %v", locked, err)
	}

	// 31 minutes in: the lockout has expired too.
	mr.FastForward(15 * time.Minute)
	locked, err = l.IsLocked(ctx, "usr_1")
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Fatal("lockout flag outlived its TTL")
	}
}

func TestResetClearsCurrentWindow(t *testing.T) {
	_, l := newTestLimiter(t, DefaultLoginConfig())
	ctx := context.Background()

	_, _ = l.RecordFailure(ctx, "a@b.com", "usr_1")
	_, _ = l.RecordFailure(ctx, "a@b.com", "usr_1")
	if err := l.Reset(ctx, "a@b.com"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	count, err := l.Failures(ctx, "a@b.com")
	if err != nil || count != 0 {
		t.Fatalf("Failures after Reset = %d, %v", count, err)
	}
}

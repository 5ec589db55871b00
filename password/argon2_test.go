package password

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Hasher {
	t.Helper()
	// Minimum-cost parameters keep the test fast.
	h, err := New(Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher(t)

	encoded, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected encoding: %s", encoded)
	}

	ok, err := h.Verify("correct-horse-battery", encoded)
	if err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v", ok, err)
	}

	ok, err = h.Verify("wrong-password-1", encoded)
	if err != nil {
		t.Fatalf("Verify(wrong): %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := testHasher(t)
	a, _ := h.Hash("same-password-01")
	b, _ := h.Hash("same-password-01")
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestShortPasswordRejected(t *testing.T) {
	h := testHasher(t)
	if _, err := h.Hash("short"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}

func TestMalformedHashRejected(t *testing.T) {
	h := testHasher(t)
	for _, encoded := range []string{
		"",
		"plainhash",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	} {
		if _, err := h.Verify("whatever-pass", encoded); err == nil {
			t.Fatalf("expected error for %q", encoded)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := New(Config{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatal("expected low memory to be rejected")
	}
	if _, err := New(Config{Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatal("expected zero time cost to be rejected")
	}
}

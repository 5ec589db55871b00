package secrets

import (
	"strings"
	"testing"
)

func TestTokenShapeAndUniqueness(t *testing.T) {
	a, err := Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	b, err := Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if a == b {
		t.Fatal("two tokens are identical")
	}
	if len(a) != 43 { // 32 bytes, base64url without padding
		t.Fatalf("token length = %d", len(a))
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("token is not URL safe: %s", a)
	}
}

func TestTempPassword(t *testing.T) {
	p, err := TempPassword()
	if err != nil {
		t.Fatalf("TempPassword: %v", err)
	}
	if len(p) != 16 {
		t.Fatalf("length = %d, want 16", len(p))
	}
	for _, c := range p {
		if !strings.ContainsRune(passwordAlphabet, c) {
			t.Fatalf("character %q outside alphabet", c)
		}
	}
}

package invite

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestGenerateTokenLengthAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		token, err := GenerateToken(32)
		if err != nil {
			t.Fatalf("GenerateToken() = %v", err)
		}
		if token == "" {
			t.Fatal("GenerateToken() returned empty token")
		}
		if strings.ContainsAny(token, "+/=") {
			t.Errorf("token %q is not URL-safe", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	h1 := HashToken("some-token")
	h2 := HashToken("some-token")
	if h1 != h2 {
		t.Errorf("same input hashed to %q and %q", h1, h2)
	}
	if h1 == HashToken("other-token") {
		t.Error("distinct inputs hashed identically")
	}
	if raw, err := hex.DecodeString(h1); err != nil || len(raw) != 32 {
		t.Errorf("hash %q is not hex-encoded SHA-256", h1)
	}
}

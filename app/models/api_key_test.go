package models

import (
	"strings"
	"testing"
)

func TestNewAPIKey(t *testing.T) {
	key, secret, err := NewAPIKey(42, "  ci pipeline  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(secret, "dfk_") {
		t.Fatalf("secret %q missing dfk_ prefix", secret)
	}
	if key.KeyHash != HashAPIKey(secret) {
		t.Fatal("stored hash does not match the issued secret")
	}
	if key.KeyPrefix != secret[:16] {
		t.Fatalf("key prefix %q does not identify the secret", key.KeyPrefix)
	}
	if key.Name != "ci pipeline" {
		t.Fatalf("name not trimmed: %q", key.Name)
	}
	if key.UserID != 42 {
		t.Fatalf("user id = %d", key.UserID)
	}
	if !key.IsActive() {
		t.Fatal("fresh key must be active")
	}
}

func TestNewAPIKeySecretsAreUnique(t *testing.T) {
	_, first, err := NewAPIKey(1, "a")
	if err != nil {
		t.Fatal(err)
	}
	_, second, err := NewAPIKey(1, "b")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("two generated keys must never collide")
	}
}

func TestHashAPIKeyTrimsWhitespace(t *testing.T) {
	if HashAPIKey(" dfk_abc ") != HashAPIKey("dfk_abc") {
		t.Fatal("surrounding whitespace must not change the hash")
	}
	if len(HashAPIKey("dfk_abc")) != 64 {
		t.Fatal("hash must be 64 hex characters")
	}
}

func TestAPIKeyRevoke(t *testing.T) {
	key, _, err := NewAPIKey(1, "short lived")
	if err != nil {
		t.Fatal(err)
	}

	key.Revoke()
	if key.IsActive() {
		t.Fatal("revoked key must not authenticate")
	}
	if key.RevokedAt == nil {
		t.Fatal("revocation time not recorded")
	}
}

func TestAPIKeyIsActiveNilSafe(t *testing.T) {
	var key *APIKey
	if key.IsActive() {
		t.Fatal("nil key must not be active")
	}
}

package handlers

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("0xabc", RoleOwner, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateJWTToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Principal != "0xabc" || claims.Role != RoleOwner {
		t.Fatalf("unexpected claims %q/%q", claims.Principal, claims.Role)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken("0xabc", RoleBackend, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWTToken(token); err == nil {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	token, err := GenerateToken("0xabc", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateJWTToken(token + "x"); err == nil {
		t.Fatal("expected tampered token to fail validation")
	}
}

package utils

import (
	"strings"
	"testing"
)

func TestNormalizeWalletID(t *testing.T) {
	raw := "AB" + strings.Repeat("00", 30) + "cd"
	want := "0xab" + strings.Repeat("00", 30) + "cd"

	for _, in := range []string{raw, "0x" + raw, "  0X" + raw + " "} {
		got, err := NormalizeWalletID(in)
		if err != nil {
			t.Fatalf("NormalizeWalletID(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("NormalizeWalletID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeWalletIDRejectsBadLength(t *testing.T) {
	for _, in := range []string{"", "0x1234", "0x" + strings.Repeat("ab", 20), "not-hex"} {
		if _, err := NormalizeWalletID(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestNormalizePrincipal(t *testing.T) {
	addr20 := "0x" + strings.Repeat("Ab", 20)
	got, err := NormalizePrincipal(addr20)
	if err != nil {
		t.Fatalf("NormalizePrincipal: %v", err)
	}
	if got != strings.ToLower(addr20) {
		t.Fatalf("expected lowercase address, got %q", got)
	}

	addr32 := strings.Repeat("cd", 32)
	got, err = NormalizePrincipal(addr32)
	if err != nil {
		t.Fatalf("NormalizePrincipal: %v", err)
	}
	if got != "0x"+addr32 {
		t.Fatalf("expected 0x-prefixed 32-byte id, got %q", got)
	}

	if _, err := NormalizePrincipal("0x1234"); err == nil {
		t.Fatal("expected error for odd-length principal")
	}
}

func TestIsValidAssetKey(t *testing.T) {
	for _, ok := range []string{"USDC", "WBTC", "USDC-E", "A_1"} {
		if !IsValidAssetKey(ok) {
			t.Fatalf("expected %q to be valid", ok)
		}
	}
	for _, bad := range []string{"", "usdc", "US DC", strings.Repeat("A", 51)} {
		if IsValidAssetKey(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

package domain

import (
	"strings"
	"testing"
)

func TestComputeUserHashDeterministic(t *testing.T) {
	variants := []string{"a@b.com", " A@B.com ", "A@b.COM", "\ta@b.com\n"}
	want := ComputeUserHash("a@b.com")
	for _, v := range variants {
		if got := ComputeUserHash(v); got != want {
			t.Fatalf("variant %q: expected %q, got %q", v, want, got)
		}
	}
}

func TestComputeUserHashEmpty(t *testing.T) {
	for _, v := range []string{"", "   ", "\t\n"} {
		if got := ComputeUserHash(v); got != "" {
			t.Fatalf("expected empty hash for %q, got %q", v, got)
		}
	}
}

func TestComputeUserHashKeySafe(t *testing.T) {
	hash := ComputeUserHash("weird address+tag@sub.example.com")
	if !strings.HasPrefix(hash, "u") {
		t.Fatalf("expected type prefix, got %q", hash)
	}
	if len(hash) != 1+userHashHexLen {
		t.Fatalf("expected fixed width %d, got %d (%q)", 1+userHashHexLen, len(hash), hash)
	}
	for _, r := range hash[1:] {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("non-hex rune %q in %q", r, hash)
		}
	}
}

func TestComputeUserHashDistinguishesAddresses(t *testing.T) {
	if ComputeUserHash("a@b.com") == ComputeUserHash("b@a.com") {
		t.Fatal("distinct addresses should hash differently")
	}
}

package servicetest

import (
	"testing"

	"github.com/fintrack/fintrack/internal/auth"
)

// FastParams keep argon2 cheap in tests. The digest format is unchanged.
var FastParams = auth.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// NewHasher returns an auth.Hasher using FastParams.
func NewHasher(t testing.TB) *auth.Hasher {
	t.Helper()
	h, err := auth.NewHasher(FastParams)
	if err != nil {
		t.Fatalf("auth.NewHasher: %v", err)
	}
	return h
}

// NewTokenIssuer returns an auth.TokenIssuer with a fixed test secret.
func NewTokenIssuer(t testing.TB) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("test-secret", 0)
	if err != nil {
		t.Fatalf("auth.NewTokenIssuer: %v", err)
	}
	return issuer
}

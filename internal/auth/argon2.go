// Package auth provides password hashing, access tokens and the request identity.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params are the Argon2id cost parameters encoded into every digest.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultParams follow the OWASP 2024 recommended minimum.
var DefaultParams = Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

// MaxParams bounds the cost parameters accepted from a stored digest.
var MaxParams = Params{
	Time:    4 * DefaultParams.Time,
	Memory:  4 * DefaultParams.Memory,
	Threads: 4 * DefaultParams.Threads,
	KeyLen:  4 * DefaultParams.KeyLen,
	SaltLen: 4 * DefaultParams.SaltLen,
}

var (
	// ErrInvalidHash indicates the hash format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	// ErrInvalidParams indicates cost parameters outside (0, MaxParams].
	ErrInvalidParams = errors.New("argon2 parameters out of range")
)

func (p Params) withinLimits() bool {
	return p.Time > 0 && p.Time <= MaxParams.Time &&
		p.Memory > 0 && p.Memory <= MaxParams.Memory &&
		p.Threads > 0 && p.Threads <= MaxParams.Threads &&
		p.KeyLen > 0 && p.KeyLen <= MaxParams.KeyLen &&
		p.SaltLen > 0 && p.SaltLen <= MaxParams.SaltLen
}

// Hasher hashes and verifies passwords with fixed cost parameters.
type Hasher struct {
	params Params
	// dummy is verified against when no stored digest exists, so a lookup
	// miss costs the same as a password mismatch.
	dummy string
}

// NewHasher creates a Hasher for p. Parameters above MaxParams are rejected
// since their digests could never be verified.
func NewHasher(p Params) (*Hasher, error) {
	if !p.withinLimits() {
		return nil, ErrInvalidParams
	}
	dummy, err := HashPasswordWithParams("fintrack-timing-equalizer", p)
	if err != nil {
		return nil, err
	}
	return &Hasher{params: p, dummy: dummy}, nil
}

// Hash returns a PHC-encoded digest of password.
func (h *Hasher) Hash(password string) (string, error) {
	return HashPasswordWithParams(password, h.params)
}

// Verify reports whether password produced digest. Digests made with other
// parameters still verify since the parameters are read from the digest.
func (h *Hasher) Verify(password, digest string) (bool, error) {
	return VerifyPassword(password, digest)
}

// EqualizeTiming burns one verification worth of work. Call it on paths
// that return early (unknown user) so they cost the same as a mismatch.
func (h *Hasher) EqualizeTiming(password string) {
	_, _ = VerifyPassword(password, h.dummy)
}

// HashPassword creates an Argon2id digest of the password with DefaultParams.
// The result is a PHC string: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func HashPassword(password string) (string, error) {
	return HashPasswordWithParams(password, DefaultParams)
}

// HashPasswordWithParams is HashPassword with explicit cost parameters.
func HashPasswordWithParams(password string, p Params) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password produced encodedHash.
// A malformed digest, or one whose parameters exceed MaxParams, yields false
// and ErrInvalidHash without running the key derivation.
func VerifyPassword(password, encodedHash string) (bool, error) {
	p, salt, expected, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func decodeHash(encodedHash string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	if !p.withinLimits() {
		return p, nil, nil, ErrInvalidHash
	}

	return p, salt, key, nil
}

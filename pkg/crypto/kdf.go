package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SessionPasswordMinLength is the shortest accepted session cookie password.
const SessionPasswordMinLength = 32

// Argon2Cost holds the Argon2id work factors.
type Argon2Cost struct {
	Iterations uint32
	MemoryKiB  uint32
	Lanes      uint8
}

// SessionKeyCost is used for the session cookie key. It runs once per process start.
var SessionKeyCost = Argon2Cost{Iterations: 3, MemoryKiB: 32 * 1024, Lanes: 2}

func (c Argon2Cost) check() error {
	switch {
	case c.Iterations == 0:
		return errors.New("argon2: iterations must be positive")
	case c.Lanes == 0:
		return errors.New("argon2: lanes must be positive")
	case c.MemoryKiB < 8*uint32(c.Lanes):
		return fmt.Errorf("argon2: %d KiB is below the minimum for %d lanes", c.MemoryKiB, c.Lanes)
	}
	return nil
}

// DeriveKey stretches secret into an AES key of size bytes (16, 24 or 32).
func DeriveKey(secret, salt []byte, cost Argon2Cost, size uint32) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("argon2: empty secret")
	}
	if len(salt) < 16 {
		return nil, fmt.Errorf("argon2: salt of %d bytes is too short", len(salt))
	}
	if size != 16 && size != 24 && size != 32 {
		return nil, fmt.Errorf("argon2: unsupported key size %d", size)
	}
	if err := cost.check(); err != nil {
		return nil, err
	}
	return argon2.IDKey(secret, salt, cost.Iterations, cost.MemoryKiB, cost.Lanes, size), nil
}

// DeriveSessionKey returns the AES-256 key that seals session cookies. The
// configured salt may be any length; it is hashed into a fixed 32-byte salt.
func DeriveSessionKey(password, salt string) ([]byte, error) {
	if len(password) < SessionPasswordMinLength {
		return nil, fmt.Errorf("session password needs at least %d characters, got %d", SessionPasswordMinLength, len(password))
	}
	digest := sha256.Sum256([]byte("registrar-session\x00" + salt))
	return DeriveKey([]byte(password), digest[:], SessionKeyCost, 32)
}

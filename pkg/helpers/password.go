package helpers

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrCorruptDigest is returned when a stored digest cannot be parsed as a
// bcrypt hash. A plain mismatch is not an error.
var ErrCorruptDigest = errors.New("corrupt password digest")

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher with the given work factor.
// A cost outside the bcrypt range falls back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash generates a salted digest from a plaintext password.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares a plaintext password against a stored digest.
// The comparison is constant-time inside bcrypt. A mismatch yields
// (false, nil); a digest bcrypt cannot parse yields ErrCorruptDigest.
func (h *PasswordHasher) Verify(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, ErrCorruptDigest
}

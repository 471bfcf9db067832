package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCost keeps tests fast; production code uses DefaultCost.
	MinCost     = bcrypt.MinCost
	DefaultCost = 12
	// bcrypt ignores input beyond 72 bytes; longer passwords are rejected
	// so two distinct passwords can never share a hash.
	MaxLength = 72

	errPasswordEmpty   = "password cannot be empty"
	errPasswordTooLong = "password must not exceed %d bytes"
	errHashPasswordFmt = "failed to hash password: %w"
)

// dummyHash is compared against when no stored hash exists so that the
// missing-hash path costs the same as a real comparison.
const dummyHash = "$2a$12$dWR5CQpS4zNHLavLSIr4o.P6QDQEUJKv7mJ7WekUHHqyRSRMJzH0S"

type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash generates a bcrypt hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", fmt.Errorf(errPasswordEmpty)
	}
	if len(password) > MaxLength {
		return "", fmt.Errorf(errPasswordTooLong, MaxLength)
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf(errHashPasswordFmt, err)
	}

	return string(bytes), nil
}

// Verify reports whether password matches hash. bcrypt compares the derived
// keys with subtle.ConstantTimeCompare.
func (h *Hasher) Verify(password, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

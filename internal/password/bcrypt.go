package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes and verifies passwords with a fixed cost factor.
type Bcrypt struct {
	cost  int
	dummy []byte
}

// NewBcrypt creates a Bcrypt hasher. cost must be within bcrypt's supported range.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	// Compared against when no stored hash exists so that unknown accounts
	// cost as much as known ones.
	dummy, err := bcrypt.GenerateFromPassword([]byte("starter-api-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Bcrypt{cost: cost, dummy: dummy}, nil
}

// Hash returns a salted bcrypt hash of raw.
func (b *Bcrypt) Hash(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), b.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether raw matches hash. An empty hash never matches.
func (b *Bcrypt) Verify(raw, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(raw))
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		// Malformed stored hash: still spend the same effort.
		_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(raw))
	}
	return err == nil
}

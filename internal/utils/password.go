package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Hasher hashes passwords and refresh secrets at a fixed bcrypt cost.
type Hasher struct {
	Cost int

	once  sync.Once
	dummy []byte
}

// NewHasher returns a Hasher using cost.
func NewHasher(cost int) *Hasher {
	return &Hasher{Cost: cost}
}

// Hash returns the bcrypt hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	return HashPassword(plain, h.Cost)
}

// Verify reports whether plain matches hash.
func (h *Hasher) Verify(hash, plain string) bool {
	return VerifyPassword(hash, plain)
}

// Burn runs one comparison against a throwaway hash of the same cost, so a
// lookup miss takes as long as a wrong password.
func (h *Hasher) Burn(plain string) {
	h.once.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), h.Cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}

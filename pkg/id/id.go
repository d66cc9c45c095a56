// Package id provides identifier and opaque token generation.
package id

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// DefaultTokenBytes is the entropy of tokens returned by Token.
const DefaultTokenBytes = 32

// New returns a time-ordered UUIDv7 string.
// IDs sort lexicographically by creation time, which keeps index
// locality for database primary keys and session ids.
func New() string {
	v, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source fails.
		return uuid.NewString()
	}
	return v.String()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}

// Token returns a URL-safe random token built from n random bytes.
// n <= 0 falls back to DefaultTokenBytes.
func Token(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

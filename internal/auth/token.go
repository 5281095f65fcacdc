package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// SessionTTL is the fixed validity window of a login session.
const SessionTTL = 24 * time.Hour

// tokenBytes gives a 64-character hex token. Collisions are treated as
// cryptographically negligible; there is no uniqueness retry for tokens.
const tokenBytes = 32

// NewSessionToken returns a fresh random bearer token.
func NewSessionToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

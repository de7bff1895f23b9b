package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// SessionTokenBytes is the entropy of a session token.
const SessionTokenBytes = 32

// GenerateSessionToken returns an opaque hex token and the hash that is stored
// in its place.
func GenerateSessionToken() (string, []byte, error) {
	raw := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	token := hex.EncodeToString(raw)
	return token, HashSessionToken(token), nil
}

// HashSessionToken returns the SHA-256 of the presented token.
func HashSessionToken(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

// EqualHash compares two token hashes in constant time.
func EqualHash(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

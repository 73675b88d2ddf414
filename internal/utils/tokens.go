package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewToken returns nBytes of randomness hex-encoded, for CSRF tokens and
// similar one-off secrets.
func NewToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MustToken is NewToken for callers that cannot recover from a broken
// system random source anyway.
func MustToken(nBytes int) string {
	t, err := NewToken(nBytes)
	if err != nil {
		panic("utils: random source failed: " + err.Error())
	}
	return t
}

// Package token issues access-link tokens and derives the fingerprint that is
// stored in their place.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// rawTokenBytes gives 256 bits of entropy.
const rawTokenBytes = 32

// FingerprintLength is the length of a hex-encoded sha256 digest.
const FingerprintLength = 64

// Generate returns a new random raw token, base64url encoded without padding
// so it can travel in a URL path segment.
func Generate() (string, error) {
	var buf [rawTokenBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating token with rand: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

// Fingerprint hashes a raw token into its storage/lookup key.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

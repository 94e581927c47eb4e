package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns a fixed-length fingerprint of a token. Cache keys stay
// short and raw token values never sit in memory longer than the request.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

package chain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the lowercase hex-encoded SHA-256 of payload.
func Digest(payload string) string {
	h := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(h[:])
}

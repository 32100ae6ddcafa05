package collections

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the SHA-256 hex digest of content. This is the
// fingerprint the sync engine compares to decide whether a file changed.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

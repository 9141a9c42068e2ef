package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash computes the content-addressable hash of a firmware image.
// It is the same SHA-256 digest the device reports for an installed slot,
// so stored images can be matched against list output.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns a shortened version of the hash for display purposes.
func ShortHash(fullHash string) string {
	if len(fullHash) > 12 {
		return fullHash[:12]
	}
	return fullHash
}

// Package sha256 names debug artifacts by content digest.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// ArtifactKeyLength is the number of hex characters kept for artifact names.
const ArtifactKeyLength = 16

// Hasher derives artifact keys from SHA-256 digests.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Key returns the truncated digest used as an artifact file name.
func (h *Hasher) Key(address string) string {
	sum := sha256.Sum256([]byte(address))
	return hex.EncodeToString(sum[:])[:ArtifactKeyLength]
}

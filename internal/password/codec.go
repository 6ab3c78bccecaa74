// Package password implements the credential digest used for stored user
// passwords.
//
// The digest format is a compatibility contract: existing rows were hashed
// both by this application and by a SHA2(..., 256) expression run directly
// in the database during an earlier migration. Both origins must verify
// interchangeably, so the codec is unsalted single-round SHA-256 encoded as
// hex, and digest comparison ignores case (the two origins do not agree on
// hex casing).
package password

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Codec hashes and verifies plaintext credentials.
type Codec struct{}

// NewCodec returns a Codec.
func NewCodec() Codec {
	return Codec{}
}

// Hash returns the lowercase hex SHA-256 digest of plaintext. The same
// plaintext always yields the same digest.
func (Codec) Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether plaintext hashes to storedDigest. The digest
// comparison is case-insensitive; the plaintext is not altered.
func (c Codec) Verify(plaintext, storedDigest string) bool {
	return strings.EqualFold(c.Hash(plaintext), storedDigest)
}

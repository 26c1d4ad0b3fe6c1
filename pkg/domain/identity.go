package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeEmail trims and lowercases an email address. Non-addresses are not
// rejected; normalization is purely lexical.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// userHashHexLen is the number of hex digits kept from the digest. 64 bits is
// collision-tolerant for the realistic population of learner emails while
// staying short enough for storage-key embedding.
const userHashHexLen = 16

// ComputeUserHash derives the pseudonymous storage-key identifier for an
// email address. The hash is a pure function of the normalized email: the
// same address always yields the same identifier across sessions, which is
// what makes migration and scoped-key lookup by recomputation possible.
// An empty normalized email yields an empty hash, meaning "no identity".
//
// The output is a short type prefix plus fixed-width lowercase hex, safe to
// embed as a key path segment. It is not a security credential.
func ComputeUserHash(email string) string {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return "u" + hex.EncodeToString(sum[:])[:userHashHexLen]
}

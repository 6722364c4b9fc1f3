package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// FingerprintVersion is bumped whenever the canonical encoding changes,
// so entries written by older builds stop matching.
const FingerprintVersion = "v1"

// Fingerprint hashes an ordered list of inputs into a stable cache key.
// Each part is quoted so separators inside values cannot collide.
func Fingerprint(parts ...string) string {
	var b strings.Builder
	b.WriteString(FingerprintVersion)
	for _, p := range parts {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(p))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// NormalizeText lowercases, trims and collapses internal whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// HashStrings returns a SHA256 hash of the provided strings with newline separators.
func HashStrings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PairKey builds an order-independent digest for a pair of identifiers, so
// (a, b) and (b, a) address the same cache and storage rows.
func PairKey(a, b string) string {
	parts := []string{a, b}
	sort.Strings(parts)
	return HashStrings(parts...)
}

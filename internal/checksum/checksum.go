// Package checksum fingerprints library files so the index and the watcher
// can tell whether a project changed on disk.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// shortLen is the number of hex digits shown to users.
const shortLen = 12

// Sum returns the hex-encoded SHA-256 digest of the raw file bytes. Line
// endings are not normalized: a file rewritten with CRLF counts as changed.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short abbreviates a digest returned by Sum for display.
func Short(sum string) string {
	if len(sum) <= shortLen {
		return sum
	}
	return sum[:shortLen]
}

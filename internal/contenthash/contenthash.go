// Package contenthash fingerprints lecture unit content so the pipeline can
// detect changes between processing runs.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VideoSource returns the SHA-256 hex digest of a video source URL. Blank
// sources hash to the empty string so "no video" never matches a real hash.
func VideoSource(source string) string {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])
}

// Package shortcode derives short codes from URLs.
//
// Generation is deterministic: the same URL always yields the same code, so
// repeated or concurrent submissions of one URL converge on the same candidate
// before any record exists.
package shortcode

import (
	"crypto/sha256"
	"encoding/base64"
)

// DefaultLength is the short code length used when no explicit length is configured.
const DefaultLength = 7

// Generate returns a fixed-length token derived from rawURL. The token is the
// base64 (URL-safe, unpadded) encoding of the URL's SHA-256 digest truncated to
// length. A longer length on the same URL extends the same token rather than
// producing an unrelated one. Non-positive lengths fall back to DefaultLength;
// lengths beyond the encoded digest are clamped.
func Generate(rawURL string, length int) string {
	if length <= 0 {
		length = DefaultLength
	}

	sum := sha256.Sum256([]byte(rawURL))
	encoded := base64.RawURLEncoding.EncodeToString(sum[:])

	if length > len(encoded) {
		length = len(encoded)
	}

	return encoded[:length]
}

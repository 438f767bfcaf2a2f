package store

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const maxKeySlug = 40

// UserKey derives a storage-safe key from a free-form identity. The readable
// slug is lossy; the blake2b digest of the raw identity keeps keys distinct.
func UserKey(identity string) string {
	sum := blake2b.Sum256([]byte(identity))
	digest := hex.EncodeToString(sum[:16])
	slug := keySlug(identity)
	if slug == "" {
		return digest
	}
	return slug + "-" + digest
}

func keySlug(identity string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(identity)) {
		if sb.Len() >= maxKeySlug {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && sb.Len() > 0 {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "_")
}

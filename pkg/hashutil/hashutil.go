package hashutil

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// FilenameHash returns a short blake3-derived identifier suitable for use
// as a deterministic filename. Twelve hex characters keep names readable
// while leaving collision odds negligible for cache-sized key spaces.
func FilenameHash(s string) string {
	hash := blake3.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])[:12]
}

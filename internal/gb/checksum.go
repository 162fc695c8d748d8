package gb

import (
	"encoding/hex"
	"hash"

	"github.com/zeebo/blake3"
)

// newChecksum returns the hash used for pushed file checksums.
func newChecksum() hash.Hash {
	return blake3.New()
}

func checksumHex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

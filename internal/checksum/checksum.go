// Package checksum fingerprints finalized datasets.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Digest accumulates JSON-encoded values, one per line, into a SHA-256 sum.
// Values must encode deterministically (no maps with unordered semantics
// beyond what encoding/json already sorts).
type Digest struct {
	h   hash.Hash
	enc *json.Encoder
}

// NewDigest returns an empty digest.
func NewDigest() *Digest {
	h := sha256.New()
	return &Digest{h: h, enc: json.NewEncoder(h)}
}

// Add encodes v into the digest.
func (d *Digest) Add(v any) error {
	if err := d.enc.Encode(v); err != nil {
		return fmt.Errorf("checksum: encode: %w", err)
	}
	return nil
}

// Hex returns the current digest.
func (d *Digest) Hex() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

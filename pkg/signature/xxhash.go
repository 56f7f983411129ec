package signature

import (
	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"
)

// XXH3 seeds a 64-bit xxh3 hash of the frame name with the parent signature.
type XXH3 struct{}

// Name implements Hasher.
func (XXH3) Name() string { return "xxh3" }

// Extend implements Hasher.
func (XXH3) Extend(parent Signature, frame string) Signature {
	return Signature(xxh3.HashStringSeed(frame, uint64(parent)))
}

// XXHash uses a reusable xxhash64 digest seeded with the parent signature.
// Extend must not be called concurrently on the same value.
type XXHash struct {
	d *xxhash.Digest
}

// NewXXHash returns an XXHash hasher.
func NewXXHash() *XXHash {
	return &XXHash{d: xxhash.New()}
}

// Name implements Hasher.
func (*XXHash) Name() string { return "xxhash" }

// Extend implements Hasher.
func (h *XXHash) Extend(parent Signature, frame string) Signature {
	h.d.ResetWithSeed(uint64(parent))
	_, _ = h.d.WriteString(frame)
	return Signature(h.d.Sum64())
}

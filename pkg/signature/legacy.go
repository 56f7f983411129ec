package signature

// Legacy is the 32-bit rolling hash (h = h*31 + c) used by older trace tooling.
// Path separators are normalised ('/' hashes as '\') and every frame is preceded
// by a newline, so the value equals the hash of the newline-joined stack text.
//
// 32 bits collide far more often than the 64-bit hashers; the registry verifies
// identities on lookup, but prefer XXH3 unless matching old traces.
type Legacy struct{}

// Name implements Hasher.
func (Legacy) Name() string { return "legacy" }

// Extend implements Hasher.
func (Legacy) Extend(parent Signature, frame string) Signature {
	h := uint32(parent)
	h = h*31 + '\n'
	for i := 0; i < len(frame); i++ {
		c := frame[i]
		if c == '/' {
			c = '\\'
		}
		h = h*31 + uint32(c)
	}
	return Signature(h)
}

// LegacyString hashes s the way the historical profiler hashed stack text.
func LegacyString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '/' {
			c = '\\'
		}
		h = h*31 + uint32(c)
	}
	return h
}

package ruida

// Swizzle magic keys by controller family. The magic is configured per
// machine, never auto-detected; an RDC6442G-family controller that receives
// traffic swizzled with the wrong magic silently ignores it.
const (
	// MagicRDC6442G is the swizzle key for the RDC6442G/RDC6445G family.
	MagicRDC6442G byte = 0x88

	// MagicRDC634XG is the swizzle key for the RDC634XG family.
	MagicRDC634XG byte = 0x11
)

// DefaultMagic is the swizzle key used when no controller family is configured.
const DefaultMagic = MagicRDC6442G

// SwizzleByte scrambles a single byte with the Ruida swizzle transform.
//
// The transform swaps bit 0 and bit 7 (via three xor-shift steps), xors in
// the family magic, and adds one. It is stateless and byte-wise: no output
// byte depends on its neighbors, so partial buffers can be swizzled
// independently, which the transport relies on when chunking oversized jobs.
func SwizzleByte(b, magic byte) byte {
	b ^= b >> 7
	b ^= b << 7
	b ^= b >> 7
	b ^= magic
	b++
	return b
}

// UnswizzleByte reverses SwizzleByte for the same magic.
func UnswizzleByte(b, magic byte) byte {
	b--
	b ^= magic
	hi := b & 0x80
	lo := b & 0x01
	b -= hi + lo
	b |= lo << 7
	b |= hi >> 7
	return b
}

// Swizzle scrambles a payload for transmission. The input slice is not
// modified.
func Swizzle(payload []byte, magic byte) []byte {
	out := make([]byte, len(payload))
	for i, b := range payload {
		out[i] = SwizzleByte(b, magic)
	}
	return out
}

// Unswizzle reverses Swizzle for the same magic. The input slice is not
// modified.
//
// Unswizzle(Swizzle(p, k), k) == p for all byte sequences p and all keys k.
func Unswizzle(payload []byte, magic byte) []byte {
	out := make([]byte, len(payload))
	for i, b := range payload {
		out[i] = UnswizzleByte(b, magic)
	}
	return out
}

package ruida

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwizzleByte_RoundTrip_AllBytes(t *testing.T) {
	for _, magic := range []byte{MagicRDC6442G, MagicRDC634XG} {
		for v := 0; v <= 0xFF; v++ {
			b := byte(v)
			got := UnswizzleByte(SwizzleByte(b, magic), magic)
			assert.Equal(t, b, got, "byte 0x%02X must survive swizzle round trip with magic 0x%02X", b, magic)
		}
	}
}

func TestSwizzleByte_IsPermutation(t *testing.T) {
	// Every input must map to a distinct output, otherwise unswizzling is
	// ambiguous and the controller could mis-decode a frame.
	for _, magic := range []byte{MagicRDC6442G, MagicRDC634XG, 0x00, 0xFF} {
		var seen [256]bool
		for v := 0; v <= 0xFF; v++ {
			out := SwizzleByte(byte(v), magic)
			assert.False(t, seen[out], "magic 0x%02X maps two inputs to 0x%02X", magic, out)
			seen[out] = true
		}
	}
}

func TestSwizzleByte_MagicsDiffer(t *testing.T) {
	// The two families must not be wire compatible.
	differs := false
	for v := 0; v <= 0xFF; v++ {
		if SwizzleByte(byte(v), MagicRDC6442G) != SwizzleByte(byte(v), MagicRDC634XG) {
			differs = true
			break
		}
	}
	assert.True(t, differs)
}

func TestSwizzle_DoesNotMutateInput(t *testing.T) {
	payload := []byte{0x88, 0x00, 0xA8, 0x7F}
	original := append([]byte(nil), payload...)

	out := Swizzle(payload, DefaultMagic)
	assert.Equal(t, original, payload, "Swizzle must not modify its input")
	assert.Len(t, out, len(payload))

	back := Unswizzle(out, DefaultMagic)
	assert.Equal(t, original, back)
	assert.Equal(t, append([]byte(nil), out...), out, "Unswizzle must not modify its input")
}

func TestSwizzle_EmptyPayload(t *testing.T) {
	assert.Empty(t, Swizzle(nil, DefaultMagic))
	assert.Empty(t, Unswizzle([]byte{}, DefaultMagic))
}

func FuzzSwizzleRoundTrip(f *testing.F) {
	f.Add([]byte{0x88}, MagicRDC6442G)
	f.Add([]byte{0xD7, 0xEB}, MagicRDC634XG)
	f.Add([]byte{}, byte(0x00))

	f.Fuzz(func(t *testing.T, payload []byte, magic byte) {
		back := Unswizzle(Swizzle(payload, magic), magic)
		if len(payload) == 0 {
			assert.Empty(t, back)
			return
		}
		assert.Equal(t, payload, back)
	})
}

package ruida

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	assert.Equal(t, uint16(0), Checksum(nil))
	assert.Equal(t, uint16(0x01), Checksum([]byte{0x01}))
	assert.Equal(t, uint16(0x1FE), Checksum([]byte{0xFF, 0xFF}))

	// The sum truncates to 16 bits: 257 x 0xFF = 0xFEFF + 0x100 -> wraps.
	big := make([]byte, 0x101)
	for i := range big {
		big[i] = 0xFF
	}
	assert.Equal(t, uint16(0xFFFF&(0x101*0xFF)), Checksum(big))
}

func TestFrame_PackLayout(t *testing.T) {
	payload := []byte{0xE7, 0x00}
	frame := NewFrame(payload)

	wire := frame.Pack(DefaultMagic)
	require.Len(t, wire, 2+len(payload))

	// Checksum prefix is big-endian and computed over the clear payload.
	assert.Equal(t, byte(frame.Checksum>>8), wire[0])
	assert.Equal(t, byte(frame.Checksum), wire[1])
	assert.Equal(t, uint16(0xE7), frame.Checksum)

	// The payload travels swizzled, the prefix does not.
	assert.Equal(t, SwizzleByte(0xE7, DefaultMagic), wire[2])
	assert.Equal(t, SwizzleByte(0x00, DefaultMagic), wire[3])
}

func TestParseFrame_RoundTrip(t *testing.T) {
	payload := []byte{0x88, 0x00, 0x00, 0x06, 0x0D, 0x20, 0x00, 0x00, 0x06, 0x0D, 0x20}
	wire := NewFrame(payload).Pack(MagicRDC634XG)

	frame, err := ParseFrame(wire, MagicRDC634XG)
	require.NoError(t, err)
	assert.Equal(t, payload, frame.Payload)
	assert.Equal(t, Checksum(payload), frame.Checksum)
}

func TestParseFrame_CorruptionDetected(t *testing.T) {
	payload := []byte{0xC6, 0x31, 0x00, 0x00, 0x00}
	wire := NewFrame(payload).Pack(DefaultMagic)

	// Flip one bit anywhere in the frame; the checksum must catch it.
	for i := range wire {
		corrupt := append([]byte(nil), wire...)
		corrupt[i] ^= 0x04

		_, err := ParseFrame(corrupt, DefaultMagic)
		require.Error(t, err, "bit flip at byte %d must not parse", i)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	}
}

func TestParseFrame_WrongMagic(t *testing.T) {
	payload := []byte{0xD7, 0xEB, 0x12, 0x34}
	wire := NewFrame(payload).Pack(MagicRDC6442G)

	// Unswizzling with the wrong family key yields a different payload, so
	// the checksum no longer matches.
	_, err := ParseFrame(wire, MagicRDC634XG)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestParseFrame_TooShort(t *testing.T) {
	_, err := ParseFrame(nil, DefaultMagic)
	assert.ErrorIs(t, err, ErrFrameTooShort)

	_, err = ParseFrame([]byte{0x00}, DefaultMagic)
	assert.ErrorIs(t, err, ErrFrameTooShort)
}

func TestParseFrame_ZeroLengthPayload(t *testing.T) {
	wire := NewFrame(nil).Pack(DefaultMagic)
	require.Len(t, wire, 2)

	frame, err := ParseFrame(wire, DefaultMagic)
	require.NoError(t, err)
	assert.Empty(t, frame.Payload)
	assert.Equal(t, uint16(0), frame.Checksum)
}

func TestNewFrame_Deterministic(t *testing.T) {
	payload := []byte{0xCA, 0x22, 0x01}
	a := NewFrame(payload).Pack(DefaultMagic)
	b := NewFrame(payload).Pack(DefaultMagic)
	assert.Equal(t, a, b)
}

func FuzzParseFrame(f *testing.F) {
	f.Add(NewFrame([]byte{0xE7, 0x00}).Pack(MagicRDC6442G), MagicRDC6442G)
	f.Add([]byte{0x00, 0x00}, MagicRDC634XG)
	f.Add([]byte{}, byte(0x88))

	f.Fuzz(func(t *testing.T, raw []byte, magic byte) {
		frame, err := ParseFrame(raw, magic)
		if err != nil {
			return
		}
		// Anything that parses must repack to the identical wire bytes.
		assert.Equal(t, raw, frame.Pack(magic))
	})
}

package ruida

import (
	"encoding/binary"
	"fmt"
)

// checksumSize is the size of the leading checksum in bytes.
const checksumSize = 2

// Frame is one wire unit: a 16-bit checksum over the unobfuscated payload,
// followed by the payload. On the wire the payload travels swizzled while the
// checksum prefix travels in the clear:
//
//	[Checksum_Hi(1)][Checksum_Lo(1)][swizzled payload]
//
// Computing the checksum before obfuscation lets a receiver discard corrupt
// frames without knowing the swizzle magic of a healthy one, and keeps the
// framing layer independent of the codec.
type Frame struct {
	Checksum uint16
	Payload  []byte
}

// Checksum computes the 16-bit frame checksum over data: the arithmetic sum
// of all unsigned byte values, truncated to 16 bits.
func Checksum(data []byte) uint16 {
	var sum uint32
	for _, v := range data {
		sum += uint32(v)
	}
	return uint16(sum & 0xFFFF) //nolint:gosec // intentional truncation
}

// NewFrame builds a Frame for payload, computing the checksum over the
// unswizzled bytes. A zero-length payload yields a valid 2-byte frame.
// The payload is not copied; the frame takes ownership.
func NewFrame(payload []byte) Frame {
	return Frame{Checksum: Checksum(payload), Payload: payload}
}

// Pack serializes the frame to its wire format, swizzling the payload with
// magic. The returned slice has length 2 + len(Payload).
func (f Frame) Pack(magic byte) []byte {
	buf := make([]byte, checksumSize+len(f.Payload))
	binary.BigEndian.PutUint16(buf[:checksumSize], f.Checksum)
	for i, b := range f.Payload {
		buf[checksumSize+i] = SwizzleByte(b, magic)
	}
	return buf
}

// ParseFrame deserializes a wire buffer: reads the checksum prefix,
// unswizzles the remaining bytes with magic, and verifies the checksum over
// the recovered payload.
//
// A verification failure is ErrChecksumMismatch, never a generic decode
// error; callers discard such frames and must not act on them.
func ParseFrame(raw []byte, magic byte) (Frame, error) {
	if len(raw) < checksumSize {
		return Frame{}, ErrFrameTooShort
	}

	wire := binary.BigEndian.Uint16(raw[:checksumSize])
	payload := Unswizzle(raw[checksumSize:], magic)

	if calc := Checksum(payload); calc != wire {
		return Frame{}, fmt.Errorf("%w: wire=0x%04X, computed=0x%04X", ErrChecksumMismatch, wire, calc)
	}

	return Frame{Checksum: wire, Payload: payload}, nil
}

package ruida

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Field sizes of the RD fixed-point encodings.
const (
	// coordSize is the size of an encoded coordinate: 5 bytes of 7 bits each,
	// most significant group first, carrying microns.
	coordSize = 5

	// powerSize is the size of an encoded power field: 14 bits over two
	// 7-bit bytes, where 0x3FFF represents 100%.
	powerSize = 2

	// powerFullScale is the raw value representing 100% power.
	powerFullScale = 0x3FFF
)

// Coordinate limits. Signed fields are two's complement in 32 bits before
// being split into 7-bit groups, so the representable range is that of an
// int32 in microns (roughly +/-2147 meters, far beyond any real bed).
const (
	maxCoordMM = float64(math.MaxInt32) / 1000.0
	minCoordMM = float64(math.MinInt32) / 1000.0
)

// coordInRange reports whether a millimeter value survives the signed
// micron encoding without truncation.
func coordInRange(mm float64) bool {
	return mm >= minCoordMM && mm <= maxCoordMM && !math.IsNaN(mm)
}

// encodeCoordMM encodes an unsigned millimeter value into the 5x7-bit
// micron field. Negative inputs must use encodeCoordMMSigned.
func encodeCoordMM(mm float64) []byte {
	um := int64(math.Round(mm * 1000.0))
	out := make([]byte, coordSize)
	for i := coordSize - 1; i >= 0; i-- {
		out[i] = byte(um & 0x7F)
		um >>= 7
	}
	return out
}

// encodeCoordMMSigned encodes a signed millimeter value as two's complement
// in 32 bits split into 7-bit groups. Used for origin-relative positions and
// Z offsets, which routinely go negative.
func encodeCoordMMSigned(mm float64) []byte {
	um := int64(math.Round(mm * 1000.0))
	raw := uint64(uint32(int32(um))) //nolint:gosec // intentional 32-bit two's complement wrap
	out := make([]byte, coordSize)
	for i := coordSize - 1; i >= 0; i-- {
		out[i] = byte(raw & 0x7F)
		raw >>= 7
	}
	return out
}

// decodeCoordMM decodes a 5x7-bit unsigned coordinate field to millimeters.
func decodeCoordMM(payload []byte) (float64, error) {
	if len(payload) < coordSize {
		return 0, fmt.Errorf("%w: coordinate field is %d bytes, want %d", ErrMalformedReply, len(payload), coordSize)
	}
	var um uint64
	for _, b := range payload[:coordSize] {
		um = um<<7 | uint64(b&0x7F)
	}
	return float64(um) / 1000.0, nil
}

// decodeCoordMMSigned decodes a 5x7-bit signed coordinate field to millimeters.
func decodeCoordMMSigned(payload []byte) (float64, error) {
	if len(payload) < coordSize {
		return 0, fmt.Errorf("%w: coordinate field is %d bytes, want %d", ErrMalformedReply, len(payload), coordSize)
	}
	var raw uint64
	for _, b := range payload[:coordSize] {
		raw = raw<<7 | uint64(b&0x7F)
	}
	return float64(int32(uint32(raw))) / 1000.0, nil //nolint:gosec // intentional 32-bit reinterpretation
}

// encodePowerPct encodes a power percentage into the 14-bit field,
// clamping to [0, 100].
func encodePowerPct(pct float64) []byte {
	clamped := math.Max(0.0, math.Min(100.0, pct))
	raw := int(math.Round(clamped * (powerFullScale / 100.0)))
	return []byte{byte(raw>>7) & 0x7F, byte(raw) & 0x7F}
}

// encodeSpeedMMS encodes a speed in mm/s; speeds share the coordinate
// field encoding, carried as microns per second.
func encodeSpeedMMS(mmps float64) []byte {
	return encodeCoordMM(mmps)
}

// decodeStatusBits decodes a 4-byte big-endian machine status register.
func decodeStatusBits(payload []byte) (uint32, error) {
	if len(payload) < 4 {
		return 0, fmt.Errorf("%w: status field is %d bytes, want 4", ErrMalformedReply, len(payload))
	}
	return binary.BigEndian.Uint32(payload[:4]), nil
}

package ruida

// RD opcode bytes used by the job encoder and the status prober.
//
// These values come from community reverse-engineering of RD files and UDP
// captures from known-good vendor software. Unverified opcodes from the wider
// RD command space are deliberately not listed; the encoder only emits what
// has been observed on real hardware.
const (
	// opAxisPrefix introduces single-axis operations; followed by a selector.
	opAxisPrefix byte = 0x80
	// opAxisZOffset (selector after opAxisPrefix) moves Z by a signed offset.
	opAxisZOffset byte = 0x03

	// opMoveAbsXY is a travel move to an absolute XY position.
	opMoveAbsXY byte = 0x88
	// opCutAbsXY is a cutting move to an absolute XY position.
	opCutAbsXY byte = 0xA8

	// opImdPower sets the immediate laser power (14-bit operand).
	opImdPower byte = 0xC7

	// opSpeedPrefix introduces speed operations; followed by a selector.
	opSpeedPrefix byte = 0xC9
	// opSpeedImmediate (selector) sets the immediate axis speed.
	opSpeedImmediate byte = 0x02
	// opSpeedLayer (selector) sets a layer's speed: layer id + speed operand.
	opSpeedLayer byte = 0x04

	// opPowerPrefix introduces the layer power table; followed by a selector.
	opPowerPrefix byte = 0xC6
	// opPowerLayerMin (selector) sets a layer's minimum power.
	opPowerLayerMin byte = 0x31
	// opPowerLayerMax (selector) sets a layer's maximum power.
	opPowerLayerMax byte = 0x32

	// opLayerPrefix introduces layer metadata; followed by a selector.
	opLayerPrefix byte = 0xCA
	// opLayerSubPrefix (selector) introduces sub-selected layer flags.
	opLayerSubPrefix byte = 0x01
	// opAirAssistOff / opAirAssistOn are sub-selectors after opLayerSubPrefix.
	opAirAssistOff byte = 0x12
	opAirAssistOn  byte = 0x13
	// opLayerCount (selector) declares the number of layers in the job.
	opLayerCount byte = 0x22
	// opLayerMode (selector) sets a layer's mode flags.
	opLayerMode byte = 0x41

	// opEOF terminates the opcode stream.
	opEOF byte = 0xD7

	// opMemoryPrefix introduces controller memory operations.
	opMemoryPrefix byte = 0xDA
	// opMemoryRead (selector) requests a register value.
	opMemoryRead byte = 0x00
	// opMemoryReply (selector) prefixes a register value reply.
	opMemoryReply byte = 0x01

	// opJobPrefix introduces job-scoped operations; followed by a selector.
	opJobPrefix byte = 0xE7
	// opJobStop (selector) halts execution immediately.
	opJobStop byte = 0x00
	// opJobBBoxTopLeft (selector) declares the job bounding box minimum corner.
	opJobBBoxTopLeft byte = 0x03
	// opJobBBoxBottomRight (selector) declares the bounding box maximum corner.
	opJobBBoxBottomRight byte = 0x07

	// opFinish marks the end of the job body after opEOF.
	opFinish byte = 0xEB
)

// Single-byte transport replies. Some controller firmwares reply 0xC6/0x46,
// others 0xCC/0xCF; both generations are accepted.
const (
	// AckByte is the primary positive acknowledgment.
	AckByte byte = 0xC6
	// AckByteAlt is the positive acknowledgment on older firmwares.
	AckByteAlt byte = 0xCC
	// NackByte is the primary negative acknowledgment.
	NackByte byte = 0x46
	// NackByteAlt is the negative acknowledgment on older firmwares.
	NackByteAlt byte = 0xCF
)

// IsAck reports whether b is a positive acknowledgment byte.
func IsAck(b byte) bool { return b == AckByte || b == AckByteAlt }

// IsNack reports whether b is a negative acknowledgment byte.
func IsNack(b byte) bool { return b == NackByte || b == NackByteAlt }

// Controller memory register addresses readable via opMemoryRead.
const (
	// MemMachineStatus is the 4-byte machine status bitfield.
	MemMachineStatus uint16 = 0x0400
	// MemCurrentX is the absolute X position, 5-byte coordinate encoding.
	MemCurrentX uint16 = 0x0421
	// MemCurrentY is the absolute Y position, 5-byte coordinate encoding.
	MemCurrentY uint16 = 0x0431
)

// Profile describes a controller family's wire quirks. Keeping the family
// differences in one value means a corrected constant touches one place.
type Profile struct {
	// Name identifies the controller family, e.g. "rdc6442g".
	Name string
	// Magic is the swizzle key for this family.
	Magic byte
}

// Profiles lists the known controller families.
var Profiles = map[string]Profile{
	"rdc6442g": {Name: "rdc6442g", Magic: MagicRDC6442G},
	"rdc634xg": {Name: "rdc634xg", Magic: MagicRDC634XG},
}

// DefaultProfileName is the controller family assumed when none is configured.
const DefaultProfileName = "rdc6442g"

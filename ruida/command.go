package ruida

import "fmt"

// Point3 is an absolute XYZ position in millimeters.
type Point3 struct {
	X, Y, Z float64
}

// Sub returns p - o componentwise.
func (p Point3) Sub(o Point3) Point3 {
	return Point3{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

func (p Point3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)
}

// CommandType discriminates the Command variants.
type CommandType uint8

const (
	// CmdMoveTo is a travel move to an absolute position.
	CmdMoveTo CommandType = iota
	// CmdCutLineTo is a cutting move to an absolute position.
	CmdCutLineTo
	// CmdSetPower declares a layer's power bounds.
	CmdSetPower
	// CmdSetSpeed declares a layer's speed.
	CmdSetSpeed
	// CmdSetAirAssist toggles air assist.
	CmdSetAirAssist
	// CmdRotate rotates the auxiliary rotary axis. Rotation is consumed by an
	// external rotary driver, never encoded into the wire job.
	CmdRotate
	// CmdStop halts execution immediately.
	CmdStop
)

func (t CommandType) String() string {
	switch t {
	case CmdMoveTo:
		return "move-to"
	case CmdCutLineTo:
		return "cut-line-to"
	case CmdSetPower:
		return "set-power"
	case CmdSetSpeed:
		return "set-speed"
	case CmdSetAirAssist:
		return "set-air-assist"
	case CmdRotate:
		return "rotate"
	case CmdStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Command is one abstract motion/cutting instruction produced by an external
// planner. Commands are immutable once handed to the encoder; only the fields
// relevant to Type are meaningful.
type Command struct {
	Type CommandType

	// Target holds the absolute position for CmdMoveTo and CmdCutLineTo.
	Target Point3

	// Layer is the caller-declared layer id for CmdSetPower and CmdSetSpeed.
	Layer uint8
	// PowerMinPct and PowerMaxPct are the layer power bounds for CmdSetPower.
	PowerMinPct float64
	PowerMaxPct float64
	// SpeedMMS is the layer speed for CmdSetSpeed, in mm/s.
	SpeedMMS float64

	// AirAssistOn is the air-assist state for CmdSetAirAssist.
	AirAssistOn bool

	// AngleDeg and RotateSpeedDPS parameterize CmdRotate.
	AngleDeg       float64
	RotateSpeedDPS float64
}

// MoveTo builds a travel move command.
func MoveTo(x, y, z float64) Command {
	return Command{Type: CmdMoveTo, Target: Point3{X: x, Y: y, Z: z}}
}

// CutLineTo builds a cutting move command.
func CutLineTo(x, y, z float64) Command {
	return Command{Type: CmdCutLineTo, Target: Point3{X: x, Y: y, Z: z}}
}

// SetPower declares power bounds for the given layer id.
func SetPower(layer uint8, minPct, maxPct float64) Command {
	return Command{Type: CmdSetPower, Layer: layer, PowerMinPct: minPct, PowerMaxPct: maxPct}
}

// SetSpeed declares the speed for the given layer id.
func SetSpeed(layer uint8, mmPerS float64) Command {
	return Command{Type: CmdSetSpeed, Layer: layer, SpeedMMS: mmPerS}
}

// SetAirAssist toggles the air-assist output.
func SetAirAssist(on bool) Command {
	return Command{Type: CmdSetAirAssist, AirAssistOn: on}
}

// Rotate rotates the auxiliary axis to an absolute angle.
func Rotate(angleDeg, speedDPS float64) Command {
	return Command{Type: CmdRotate, AngleDeg: angleDeg, RotateSpeedDPS: speedDPS}
}

// Stop halts execution immediately.
func Stop() Command {
	return Command{Type: CmdStop}
}

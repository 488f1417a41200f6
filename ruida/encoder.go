package ruida

import (
	"math"
)

// EncodeOptions carries the machine-side policy the encoder needs beyond the
// command stream itself.
type EncodeOptions struct {
	// MovementOnly guarantees the beam cannot fire: every cut is downgraded
	// to its travel-only equivalent and all power opcodes are suppressed
	// except a single leading laser-off. This is a defense-in-depth policy
	// against upstream planning bugs, not an optimization.
	MovementOnly bool

	// AirAssist is the machine default emitted in the job header; SetAirAssist
	// commands override it mid-stream.
	AirAssist bool

	// ZPositiveMovesBedUp selects the Z sign convention: when false the
	// encoder negates emitted Z offsets so positive planner Z always moves
	// the head away from the work.
	ZPositiveMovesBedUp bool
}

// bodyWriter accumulates the job body while recording where each opcode
// starts, so the transport can chunk without splitting an opcode.
type bodyWriter struct {
	buf   []byte
	marks []int
}

// op appends one whole opcode (selector bytes + operands) as a single
// unsplittable unit.
func (w *bodyWriter) op(parts ...[]byte) {
	w.marks = append(w.marks, len(w.buf))
	for _, p := range parts {
		w.buf = append(w.buf, p...)
	}
}

// layerState tracks a layer's declared parameters during encoding.
// Speed and power arrive in separate commands, so completeness is tracked
// per half.
type layerState struct {
	layer    Layer
	hasSpeed bool
	hasPower bool
}

func (ls *layerState) complete() bool { return ls.hasSpeed && ls.hasPower }

// encoder walks a command sequence once, building the layer table, the
// origin-relative opcode stream, and the incremental bounding box.
type encoder struct {
	origin Point3
	opts   EncodeOptions

	layers []*layerState
	// current is the id of the most recently declared layer, or -1.
	current int

	stream bodyWriter

	// emitted motion state, used to suppress redundant opcodes.
	lastSpeedUMS int64
	hasSpeed     bool
	lastPowerPct float64
	hasPower     bool
	lastZ        float64
	hasZ         bool

	// laserOffSent tracks the single movement-only leading laser-off.
	laserOffSent bool

	havePoint bool
	bboxMin   Point3
	bboxMax   Point3
}

// EncodeJob turns an ordered command sequence into a controller job. Every
// emitted coordinate is expressed relative to origin (the captured anchor),
// never relative to the controller's absolute machine zero.
//
// Encoding fails, rather than silently dropping commands, when a command
// re-declares a layer id with different parameters, duplicates a
// (speed, power) pair under a new id, targets a coordinate outside the
// representable range, or contains a Rotate (rotation belongs to the rotary
// collaborator, not the wire job). The returned EncodingError carries the
// offending command index.
func EncodeJob(cmds []Command, origin Point3, opts EncodeOptions) (*Job, error) {
	enc := &encoder{origin: origin, opts: opts, current: -1}

	if opts.MovementOnly {
		// Leading laser-off, sent exactly once per job.
		enc.stream.op([]byte{opImdPower}, encodePowerPct(0))
		enc.lastPowerPct = 0
		enc.hasPower = true
		enc.laserOffSent = true
	}

	for i, cmd := range cmds {
		var err error
		switch cmd.Type {
		case CmdSetSpeed:
			err = enc.setSpeed(i, cmd)
		case CmdSetPower:
			err = enc.setPower(i, cmd)
		case CmdMoveTo:
			err = enc.motion(i, cmd, false)
		case CmdCutLineTo:
			err = enc.motion(i, cmd, !opts.MovementOnly)
		case CmdSetAirAssist:
			enc.airAssist(cmd.AirAssistOn)
		case CmdStop:
			enc.stream.op([]byte{opJobPrefix, opJobStop})
		case CmdRotate:
			err = encodingErrf(i, "rotate command cannot be encoded into a wire job; partition the sequence at rotate boundaries")
		default:
			err = encodingErrf(i, "unknown command type %d", cmd.Type)
		}
		if err != nil {
			return nil, err
		}
	}

	enc.stream.op([]byte{opEOF})
	enc.stream.op([]byte{opFinish})

	return enc.finish(), nil
}

// setSpeed declares or confirms a layer's speed.
func (e *encoder) setSpeed(index int, cmd Command) error {
	ls := e.lookup(cmd.Layer)
	if ls == nil {
		ls = &layerState{layer: Layer{ID: cmd.Layer}}
		e.layers = append(e.layers, ls)
	}
	if ls.hasSpeed && ls.layer.SpeedMMS != cmd.SpeedMMS {
		return encodingErrf(index, "layer %d re-declared with speed %.3f mm/s, already %.3f mm/s",
			cmd.Layer, cmd.SpeedMMS, ls.layer.SpeedMMS)
	}
	ls.layer.SpeedMMS = cmd.SpeedMMS
	ls.hasSpeed = true
	e.current = e.indexOf(cmd.Layer)

	return e.checkDuplicate(index, ls)
}

// setPower declares or confirms a layer's power bounds.
func (e *encoder) setPower(index int, cmd Command) error {
	ls := e.lookup(cmd.Layer)
	if ls == nil {
		ls = &layerState{layer: Layer{ID: cmd.Layer}}
		e.layers = append(e.layers, ls)
	}
	if ls.hasPower && (ls.layer.PowerMinPct != cmd.PowerMinPct || ls.layer.PowerMaxPct != cmd.PowerMaxPct) {
		return encodingErrf(index, "layer %d re-declared with power %.1f-%.1f%%, already %.1f-%.1f%%",
			cmd.Layer, cmd.PowerMinPct, cmd.PowerMaxPct, ls.layer.PowerMinPct, ls.layer.PowerMaxPct)
	}
	ls.layer.PowerMinPct = cmd.PowerMinPct
	ls.layer.PowerMaxPct = cmd.PowerMaxPct
	ls.hasPower = true
	e.current = e.indexOf(cmd.Layer)

	return e.checkDuplicate(index, ls)
}

// checkDuplicate enforces that the same (speed, power) pair never produces
// two different ids within one job, keeping id and parameter tuple bijective.
func (e *encoder) checkDuplicate(index int, ls *layerState) error {
	if !ls.complete() {
		return nil
	}
	for _, other := range e.layers {
		if other == ls || !other.complete() {
			continue
		}
		if other.layer.SpeedMMS == ls.layer.SpeedMMS &&
			other.layer.PowerMinPct == ls.layer.PowerMinPct &&
			other.layer.PowerMaxPct == ls.layer.PowerMaxPct {
			return encodingErrf(index, "layer %d duplicates the speed/power pair of layer %d",
				ls.layer.ID, other.layer.ID)
		}
	}
	return nil
}

func (e *encoder) lookup(id uint8) *layerState {
	for _, ls := range e.layers {
		if ls.layer.ID == id {
			return ls
		}
	}
	return nil
}

func (e *encoder) indexOf(id uint8) int {
	for i, ls := range e.layers {
		if ls.layer.ID == id {
			return i
		}
	}
	return -1
}

// motion emits a travel or cutting move to an origin-relative target,
// preceded by whatever speed/power/Z opcodes the target requires.
func (e *encoder) motion(index int, cmd Command, cut bool) error {
	rel := cmd.Target.Sub(e.origin)
	if !coordInRange(rel.X) || !coordInRange(rel.Y) || !coordInRange(rel.Z) {
		return encodingErrf(index, "target %s exceeds representable range after origin re-basing", rel)
	}

	e.extendBBox(rel)

	// Z travels as a separate signed offset opcode, only when it changes.
	if !e.hasZ || rel.Z != e.lastZ {
		if rel.Z != 0 || e.hasZ {
			z := rel.Z
			if !e.opts.ZPositiveMovesBedUp {
				z = -z
			}
			e.stream.op([]byte{opAxisPrefix, opAxisZOffset}, encodeCoordMMSigned(z))
		}
		e.lastZ = rel.Z
		e.hasZ = true
	}

	// Speed follows the current layer; emit only on change.
	if e.current >= 0 {
		speed := e.layers[e.current].layer.SpeedMMS
		ums := int64(math.Round(speed * 1000.0))
		if !e.hasSpeed || ums != e.lastSpeedUMS {
			e.stream.op([]byte{opSpeedPrefix, opSpeedImmediate}, encodeSpeedMMS(speed))
			e.lastSpeedUMS = ums
			e.hasSpeed = true
		}
	}

	// Power: off for travel, layer maximum for cuts. Movement-only jobs
	// already sent their single laser-off and never touch power again.
	if !e.opts.MovementOnly {
		want := 0.0
		if cut && e.current >= 0 {
			want = e.layers[e.current].layer.PowerMaxPct
		}
		if !e.hasPower || want != e.lastPowerPct {
			e.stream.op([]byte{opImdPower}, encodePowerPct(want))
			e.lastPowerPct = want
			e.hasPower = true
		}
	}

	op := opMoveAbsXY
	if cut {
		op = opCutAbsXY
	}
	e.stream.op([]byte{op}, encodeCoordMMSigned(rel.X), encodeCoordMMSigned(rel.Y))

	return nil
}

func (e *encoder) airAssist(on bool) {
	sel := opAirAssistOff
	if on {
		sel = opAirAssistOn
	}
	e.stream.op([]byte{opLayerPrefix, opLayerSubPrefix, sel})
}

func (e *encoder) extendBBox(p Point3) {
	if !e.havePoint {
		e.bboxMin, e.bboxMax = p, p
		e.havePoint = true
		return
	}
	e.bboxMin.X = math.Min(e.bboxMin.X, p.X)
	e.bboxMin.Y = math.Min(e.bboxMin.Y, p.Y)
	e.bboxMin.Z = math.Min(e.bboxMin.Z, p.Z)
	e.bboxMax.X = math.Max(e.bboxMax.X, p.X)
	e.bboxMax.Y = math.Max(e.bboxMax.Y, p.Y)
	e.bboxMax.Z = math.Max(e.bboxMax.Z, p.Z)
}

// finish assembles header + stream into the final Job. The header is itself
// an opcode sequence (layer table, air assist, bounding box), so it shares
// the chunk-boundary bookkeeping with the stream.
func (e *encoder) finish() *Job {
	var header bodyWriter

	header.op([]byte{opLayerPrefix, opLayerCount, byte(len(e.layers))})

	for _, ls := range e.layers {
		id := ls.layer.ID
		minPct, maxPct := ls.layer.PowerMinPct, ls.layer.PowerMaxPct
		if e.opts.MovementOnly {
			minPct, maxPct = 0, 0
		}
		header.op([]byte{opSpeedPrefix, opSpeedLayer, id}, encodeSpeedMMS(ls.layer.SpeedMMS))
		header.op([]byte{opPowerPrefix, opPowerLayerMin, id}, encodePowerPct(minPct))
		header.op([]byte{opPowerPrefix, opPowerLayerMax, id}, encodePowerPct(maxPct))
		header.op([]byte{opLayerPrefix, opLayerMode, id, ls.layer.ModeFlags})
	}

	air := opAirAssistOff
	if e.opts.AirAssist {
		air = opAirAssistOn
	}
	header.op([]byte{opLayerPrefix, opLayerSubPrefix, air})

	header.op([]byte{opJobPrefix, opJobBBoxTopLeft},
		encodeCoordMMSigned(e.bboxMin.X), encodeCoordMMSigned(e.bboxMin.Y))
	header.op([]byte{opJobPrefix, opJobBBoxBottomRight},
		encodeCoordMMSigned(e.bboxMax.X), encodeCoordMMSigned(e.bboxMax.Y))

	job := &Job{
		Origin:  e.origin,
		BBoxMin: e.bboxMin,
		BBoxMax: e.bboxMax,
		Layers:  make([]Layer, 0, len(e.layers)),
		body:    header.buf,
		marks:   header.marks,
	}
	for _, ls := range e.layers {
		job.Layers = append(job.Layers, ls.layer)
	}

	shift := len(header.buf)
	job.body = append(job.body, e.stream.buf...)
	for _, m := range e.stream.marks {
		job.marks = append(job.marks, m+shift)
	}

	return job
}

package ruida

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultEncodeOptions() EncodeOptions {
	return EncodeOptions{AirAssist: true, ZPositiveMovesBedUp: true}
}

// cat concatenates opcode byte groups for golden comparisons.
func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestEncodeJob_SingleLayerCut(t *testing.T) {
	origin := Point3{X: 100, Y: 100}
	cmds := []Command{
		SetSpeed(1, 10),
		SetPower(1, 5, 60),
		MoveTo(0, 0, 0),
		CutLineTo(10, 0, 0),
	}

	job, err := EncodeJob(cmds, origin, defaultEncodeOptions())
	require.NoError(t, err)

	// One layer, insertion ordered.
	require.Len(t, job.Layers, 1)
	assert.Equal(t, Layer{ID: 1, SpeedMMS: 10, PowerMinPct: 5, PowerMaxPct: 60}, job.Layers[0])

	// Coordinates are re-based against the captured origin: logical (0,0)
	// becomes (-100,-100), the cut target (10,0) becomes (-90,-100).
	assert.Equal(t, Point3{X: -100, Y: -100}, job.BBoxMin)
	assert.Equal(t, Point3{X: -90, Y: -100}, job.BBoxMax)

	want := cat(
		// Header: layer table, air assist, bounding box.
		[]byte{opLayerPrefix, opLayerCount, 1},
		[]byte{opSpeedPrefix, opSpeedLayer, 1}, encodeSpeedMMS(10),
		[]byte{opPowerPrefix, opPowerLayerMin, 1}, encodePowerPct(5),
		[]byte{opPowerPrefix, opPowerLayerMax, 1}, encodePowerPct(60),
		[]byte{opLayerPrefix, opLayerMode, 1, 0},
		[]byte{opLayerPrefix, opLayerSubPrefix, opAirAssistOn},
		[]byte{opJobPrefix, opJobBBoxTopLeft}, encodeCoordMMSigned(-100), encodeCoordMMSigned(-100),
		[]byte{opJobPrefix, opJobBBoxBottomRight}, encodeCoordMMSigned(-90), encodeCoordMMSigned(-100),
		// Stream: travel move with laser off, then the cut at layer power.
		[]byte{opSpeedPrefix, opSpeedImmediate}, encodeSpeedMMS(10),
		[]byte{opImdPower}, encodePowerPct(0),
		[]byte{opMoveAbsXY}, encodeCoordMMSigned(-100), encodeCoordMMSigned(-100),
		[]byte{opImdPower}, encodePowerPct(60),
		[]byte{opCutAbsXY}, encodeCoordMMSigned(-90), encodeCoordMMSigned(-100),
		[]byte{opEOF},
		[]byte{opFinish},
	)
	assert.Equal(t, want, job.Body())
}

func TestEncodeJob_Deterministic(t *testing.T) {
	cmds := []Command{
		SetSpeed(0, 25),
		SetPower(0, 10, 40),
		MoveTo(5, 5, 0),
		CutLineTo(15, 5, 0),
		CutLineTo(15, 15, 0),
	}

	a, err := EncodeJob(cmds, Point3{X: 1, Y: 2}, defaultEncodeOptions())
	require.NoError(t, err)
	b, err := EncodeJob(cmds, Point3{X: 1, Y: 2}, defaultEncodeOptions())
	require.NoError(t, err)

	assert.Equal(t, a.Body(), b.Body())
	assert.Equal(t, a.Layers, b.Layers)
}

func TestEncodeJob_MovementOnly(t *testing.T) {
	opts := defaultEncodeOptions()
	opts.MovementOnly = true

	cmds := []Command{
		SetSpeed(1, 10),
		SetPower(1, 5, 60),
		MoveTo(0, 0, 0),
		CutLineTo(10, 0, 0),
	}

	job, err := EncodeJob(cmds, Point3{}, opts)
	require.NoError(t, err)
	body := job.Body()

	// Exactly one power opcode in the whole body stream beyond the layer
	// table, and it is the leading laser-off.
	streamStart := 0
	for i := 0; i+2 < len(body); i++ {
		if body[i] == opJobPrefix && body[i+1] == opJobBBoxBottomRight {
			streamStart = i + 2 + 2*coordSize
			break
		}
	}
	require.Positive(t, streamStart)
	stream := body[streamStart:]

	assert.Equal(t, cat([]byte{opImdPower}, encodePowerPct(0)), stream[:1+powerSize],
		"movement-only stream must lead with a laser-off")

	powerOps := 0
	for i := 0; i < len(stream); i++ {
		if stream[i] == opImdPower {
			powerOps++
			i += powerSize
		}
	}
	assert.Equal(t, 1, powerOps, "no power opcode may follow the leading laser-off")

	// Cuts are downgraded to travel moves.
	assert.NotContains(t, stream, opCutAbsXY)

	// The layer table still declares the layer, but with zeroed power.
	wantMin := cat([]byte{opPowerPrefix, opPowerLayerMin, 1}, encodePowerPct(0))
	assert.Contains(t, string(body), string(wantMin))
	wantSpeed := cat([]byte{opSpeedPrefix, opSpeedLayer, 1}, encodeSpeedMMS(10))
	assert.Contains(t, string(body), string(wantSpeed))
}

func TestEncodeJob_ZOffsetOnChange(t *testing.T) {
	cmds := []Command{
		SetSpeed(0, 10),
		SetPower(0, 0, 0),
		MoveTo(0, 0, 2),
		MoveTo(5, 0, 2), // same Z, no new offset opcode
		MoveTo(5, 5, 0), // Z returns to zero, offset re-emitted
	}

	job, err := EncodeJob(cmds, Point3{}, defaultEncodeOptions())
	require.NoError(t, err)

	zOps := countOps(job, opAxisPrefix, opAxisZOffset)
	assert.Equal(t, 2, zOps, "Z offset must be emitted only when Z changes")
}

func TestEncodeJob_ZSignConvention(t *testing.T) {
	opts := defaultEncodeOptions()
	opts.ZPositiveMovesBedUp = false

	cmds := []Command{MoveTo(0, 0, 3)}

	job, err := EncodeJob(cmds, Point3{}, opts)
	require.NoError(t, err)

	// With the convention inverted, planner +3 travels as -3.
	want := cat([]byte{opAxisPrefix, opAxisZOffset}, encodeCoordMMSigned(-3))
	assert.Contains(t, string(job.Body()), string(want))
}

func TestEncodeJob_LayerRedeclarationMismatch(t *testing.T) {
	cmds := []Command{
		SetSpeed(2, 10),
		SetSpeed(2, 20),
	}

	_, err := EncodeJob(cmds, Point3{}, defaultEncodeOptions())
	require.Error(t, err)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 1, encErr.Index)
}

func TestEncodeJob_DuplicateSpeedPowerPair(t *testing.T) {
	cmds := []Command{
		SetSpeed(1, 10),
		SetPower(1, 5, 60),
		SetSpeed(2, 10),
		SetPower(2, 5, 60), // same tuple under a second id
	}

	_, err := EncodeJob(cmds, Point3{}, defaultEncodeOptions())
	require.Error(t, err)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 3, encErr.Index)
}

func TestEncodeJob_ConsistentRedeclarationAllowed(t *testing.T) {
	cmds := []Command{
		SetSpeed(1, 10),
		SetPower(1, 5, 60),
		MoveTo(0, 0, 0),
		SetSpeed(1, 10), // identical re-declaration is fine
		CutLineTo(1, 0, 0),
	}

	_, err := EncodeJob(cmds, Point3{}, defaultEncodeOptions())
	assert.NoError(t, err)
}

func TestEncodeJob_TargetOutOfRange(t *testing.T) {
	cmds := []Command{MoveTo(maxCoordMM+10, 0, 0)}

	_, err := EncodeJob(cmds, Point3{}, defaultEncodeOptions())
	require.Error(t, err)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 0, encErr.Index)
}

func TestEncodeJob_RotateRejected(t *testing.T) {
	cmds := []Command{
		MoveTo(0, 0, 0),
		Rotate(90, 10),
	}

	_, err := EncodeJob(cmds, Point3{}, defaultEncodeOptions())
	require.Error(t, err)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 1, encErr.Index)
}

func TestEncodeJob_StopAndAirAssist(t *testing.T) {
	cmds := []Command{
		SetAirAssist(false),
		MoveTo(1, 1, 0),
		Stop(),
	}

	job, err := EncodeJob(cmds, Point3{}, defaultEncodeOptions())
	require.NoError(t, err)

	body := string(job.Body())
	assert.Contains(t, body, string([]byte{opLayerPrefix, opLayerSubPrefix, opAirAssistOff}))
	assert.Contains(t, body, string([]byte{opJobPrefix, opJobStop}))
}

func TestEncodeJob_TrailerAlwaysPresent(t *testing.T) {
	job, err := EncodeJob(nil, Point3{}, defaultEncodeOptions())
	require.NoError(t, err)

	body := job.Body()
	require.GreaterOrEqual(t, len(body), 2)
	assert.Equal(t, opEOF, body[len(body)-2])
	assert.Equal(t, opFinish, body[len(body)-1])
}

// countOps counts occurrences of a two-byte opcode at recorded opcode
// boundaries, so operand bytes cannot be miscounted as opcodes.
func countOps(job *Job, prefix, selector byte) int {
	count := 0
	for i, m := range job.marks {
		end := len(job.body)
		if i+1 < len(job.marks) {
			end = job.marks[i+1]
		}
		if end-m >= 2 && job.body[m] == prefix && job.body[m+1] == selector {
			count++
		}
	}
	return count
}

package ruida

// Layer groups commands sharing speed/power/mode settings within a job.
// Layer ids are stable for the lifetime of one job and the table preserves
// insertion order, so encoding the same command sequence twice produces
// byte-identical output.
type Layer struct {
	ID          uint8
	SpeedMMS    float64
	PowerMinPct float64
	PowerMaxPct float64
	ModeFlags   uint8
}

// Job is a complete encoded unit of work. It is built once by the encoder,
// consumed once by the transport session, and discarded after the job
// reaches a terminal status.
type Job struct {
	// Origin is the anchored absolute position all body coordinates are
	// relative to.
	Origin Point3

	// BBoxMin and BBoxMax bound every coordinate emitted into the body,
	// origin-relative. Computed incrementally during encoding, not assumed.
	BBoxMin Point3
	BBoxMax Point3

	// Layers is the insertion-ordered layer table.
	Layers []Layer

	// body is the encoded header + opcode stream.
	body []byte

	// marks are the byte offsets where each opcode starts within body,
	// in ascending order. Chunking may only split at a mark, so an opcode
	// and its operands always travel in one datagram.
	marks []int
}

// Body returns the encoded job body (header + opcode stream).
func (j *Job) Body() []byte { return j.body }

// Chunks splits the job body into payloads of at most maxPayload bytes,
// cutting only at opcode boundaries. It returns ErrOpcodeTooLarge when a
// single opcode (with operands) does not fit, which would otherwise force a
// mid-opcode split the controller cannot reassemble.
func (j *Job) Chunks(maxPayload int) ([][]byte, error) {
	if len(j.body) == 0 {
		return nil, nil
	}
	if maxPayload <= 0 {
		return nil, ErrOpcodeTooLarge
	}

	var chunks [][]byte
	start := 0
	end := 0 // end of the last whole opcode that fits in the current chunk

	boundary := func(i int) int {
		// size of opcode i, using the next mark (or body end) as its limit
		if i+1 < len(j.marks) {
			return j.marks[i+1]
		}
		return len(j.body)
	}

	for i := range j.marks {
		opEnd := boundary(i)
		if opEnd-j.marks[i] > maxPayload {
			return nil, ErrOpcodeTooLarge
		}
		if opEnd-start > maxPayload {
			chunks = append(chunks, j.body[start:end])
			start = j.marks[i]
		}
		end = opEnd
	}
	chunks = append(chunks, j.body[start:])

	return chunks, nil
}

package ruida

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestJob(t *testing.T, moves int) *Job {
	t.Helper()

	cmds := []Command{
		SetSpeed(0, 20),
		SetPower(0, 10, 50),
	}
	for i := 0; i < moves; i++ {
		cmds = append(cmds, CutLineTo(float64(i), float64(i), 0))
	}

	job, err := EncodeJob(cmds, Point3{}, defaultEncodeOptions())
	require.NoError(t, err)

	return job
}

func TestJobChunks_PreservesBody(t *testing.T) {
	job := buildTestJob(t, 40)

	chunks, err := job.Chunks(64)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var rejoined []byte
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 64)
		assert.NotEmpty(t, c)
		rejoined = append(rejoined, c...)
	}
	assert.Equal(t, job.Body(), rejoined, "chunking must preserve byte order and content")
}

func TestJobChunks_SplitsOnlyAtOpcodeBoundaries(t *testing.T) {
	job := buildTestJob(t, 40)

	chunks, err := job.Chunks(32)
	require.NoError(t, err)

	boundaries := map[int]bool{0: true}
	for _, m := range job.marks {
		boundaries[m] = true
	}

	offset := 0
	for i, c := range chunks {
		assert.True(t, boundaries[offset], "chunk %d starts mid-opcode at offset %d", i, offset)
		offset += len(c)
	}
	assert.Equal(t, len(job.Body()), offset)
}

func TestJobChunks_SingleChunkWhenSmall(t *testing.T) {
	job := buildTestJob(t, 2)

	chunks, err := job.Chunks(DefaultMaxPayload)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, job.Body(), chunks[0])
}

func TestJobChunks_OpcodeTooLarge(t *testing.T) {
	job := buildTestJob(t, 4)

	// An XY move opcode is 1 + 2 coordinate fields = 11 bytes; a 8-byte
	// budget cannot carry it whole.
	_, err := job.Chunks(8)
	assert.ErrorIs(t, err, ErrOpcodeTooLarge)

	_, err = job.Chunks(0)
	assert.ErrorIs(t, err, ErrOpcodeTooLarge)
}

func TestJobChunks_EmptyBody(t *testing.T) {
	job := &Job{}

	chunks, err := job.Chunks(DefaultMaxPayload)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

package model

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArtifact serializes a minimal valid artifact for load tests.
func writeArtifact(t *testing.T, path string, seqLen, numRanges, hidden uint32) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("RLNW"))
	require.NoError(t, err)

	header := []uint32{1, seqLen, numRanges, hidden}
	require.NoError(t, binary.Write(f, binary.LittleEndian, header))

	d := 2 * int(numRanges)
	h := int(hidden)
	total := 3*(h*d+h*h+h) + 2*h + 2
	require.NoError(t, binary.Write(f, binary.LittleEndian, make([]float32, total)))
}

func TestLoadWeights(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "controller.rlnw")
	writeArtifact(t, path, 5, 60, 16)

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 5, w.SeqLen)
	assert.Equal(t, 60, w.NumRanges)
	assert.Equal(t, 16, w.Hidden)
	assert.Equal(t, 120, w.InputDim())

	rows, cols := w.Wz.Dims()
	assert.Equal(t, 16, rows)
	assert.Equal(t, 120, cols)
	rows, cols = w.Wout.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 16, cols)
	assert.Equal(t, 2, w.Bout.Len())
}

func TestLoadWeightsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadWeights(filepath.Join(t.TempDir(), "nope.rlnw"))
	assert.Error(t, err)
}

func TestLoadWeightsBadMagic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.rlnw")
	require.NoError(t, os.WriteFile(path, []byte("NOPEaaaaaaaaaaaaaaaa"), 0644))

	_, err := LoadWeights(path)
	assert.ErrorContains(t, err, "not a controller artifact")
}

func TestLoadWeightsTruncated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trunc.rlnw")
	writeArtifact(t, path, 3, 4, 2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-8], 0644))

	_, err = LoadWeights(path)
	assert.Error(t, err)
}

func TestLoadWeightsTrailingBytes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trail.rlnw")
	writeArtifact(t, path, 3, 4, 2)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xde, 0xad})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = LoadWeights(path)
	assert.ErrorContains(t, err, "trailing bytes")
}

func TestLoadWeightsDegenerateShape(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "degen.rlnw")
	writeArtifact(t, path, 0, 4, 2)

	_, err := LoadWeights(path)
	assert.ErrorContains(t, err, "degenerate model shape")
}

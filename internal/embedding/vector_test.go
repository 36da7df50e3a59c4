package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalize_UnitLength(t *testing.T) {
	v, err := Normalize([]float32{3, 4})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, norm(v), 1e-6)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
}

func TestNormalize_ZeroVectorFails(t *testing.T) {
	_, err := Normalize([]float32{0, 0, 0})
	assert.Error(t, err)
}

func TestCenter_SingleVector(t *testing.T) {
	v, err := Center([][]float32{{2, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm(v), 1e-6)
}

func TestCenter_AveragesToUnitLength(t *testing.T) {
	v, err := Center([][]float32{
		{1, 0, 0},
		{0, 2, 0},
		{0, 0, 5},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, norm(v), 1e-6)
	// Normalizing before averaging evens out the magnitudes.
	assert.InDelta(t, float64(v[0]), float64(v[1]), 1e-6)
	assert.InDelta(t, float64(v[1]), float64(v[2]), 1e-6)
}

func TestCenter_EmptyInput(t *testing.T) {
	_, err := Center(nil)
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestCenter_InconsistentDimensions(t *testing.T) {
	_, err := Center([][]float32{{1, 0}, {1, 0, 0}})
	assert.ErrorContains(t, err, "dimensions")
}

func TestDecodeHFVector_TokenMatrix(t *testing.T) {
	v, err := decodeHFVector([]byte(`[[1,0],[0,1]]`))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm(v), 1e-6)
}

func TestDecodeHFVector_FlatVector(t *testing.T) {
	v, err := decodeHFVector([]byte(`[3,4]`))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm(v), 1e-6)
}

func TestDecodeHFVector_Garbage(t *testing.T) {
	_, err := decodeHFVector([]byte(`{"error":"loading"}`))
	assert.Error(t, err)
}

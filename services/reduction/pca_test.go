package reduction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/upb/llm-router-lab/services"
)

// Points spread along the x axis with a little noise on y.
var lineData = [][]float64{
	{-2, 0.1, 0},
	{-1, -0.1, 0},
	{0, 0.05, 0},
	{1, -0.05, 0},
	{2, 0, 0},
}

func TestPCA_FitDominantDirection(t *testing.T) {
	b, err := PCA{}.Fit(lineData, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Size())
	assert.Equal(t, 3, b.Dim())
	assert.InDeltaSlice(t, []float64{0, 0, 0}, b.Mean(), 1e-12)

	// A point on the axis is fully explained; its residual is ~0.
	res, err := b.Residual([]float64{3, 0, 0})
	require.NoError(t, err)
	assert.Less(t, floats.Norm(res, 2), 0.1)

	// A point off the axis keeps its orthogonal part.
	res, err = b.Residual([]float64{0, 0, 4})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, res[2], 1e-9)
}

func TestPCA_BasisIsOrthonormal(t *testing.T) {
	b, err := PCA{}.Fit(lineData, 2)
	require.NoError(t, err)
	require.Equal(t, 2, b.Size())

	c0 := mat.Col(nil, 0, b.components)
	c1 := mat.Col(nil, 1, b.components)
	assert.InDelta(t, 1.0, floats.Norm(c0, 2), 1e-9)
	assert.InDelta(t, 1.0, floats.Norm(c1, 2), 1e-9)
	assert.InDelta(t, 0.0, floats.Dot(c0, c1), 1e-9)

	// The first direction follows the spread of the data.
	assert.Greater(t, math.Abs(c0[0]), 0.99)
}

func TestPCA_Clamping(t *testing.T) {
	tests := []struct {
		name     string
		vectors  [][]float64
		discard  int
		wantSize int
	}{
		{"zero discard", lineData, 0, 0},
		{"negative discard", lineData, -3, 0},
		{"clamped to dimension", lineData, 10, 3},
		{"single vector", [][]float64{{1, 2, 3}}, 2, 0},
		{"clamped to rows", [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}}, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := PCA{}.Fit(tt.vectors, tt.discard)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, b.Size())
		})
	}
}

func TestBasis_EmptyResidualIsIdentity(t *testing.T) {
	b, err := PCA{}.Fit([][]float64{{1, 2}}, 1)
	require.NoError(t, err)

	res, err := b.Residual([]float64{5, -1})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, -1}, res)
}

func TestPCA_Errors(t *testing.T) {
	_, err := PCA{}.Fit(nil, 1)
	assert.True(t, services.IsConfigurationError(err))

	_, err = PCA{}.Fit([][]float64{{}}, 1)
	assert.True(t, services.IsConfigurationError(err))

	_, err = PCA{}.Fit([][]float64{{1, 2}, {1}}, 1)
	assert.True(t, services.IsConfigurationError(err))

	b, err := PCA{}.Fit(lineData, 1)
	require.NoError(t, err)
	_, err = b.Residual([]float64{1})
	assert.Error(t, err)
}

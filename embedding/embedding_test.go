package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/n0madic/go-vote-prediction/vote"
)

// testMatrix builds a deterministic, well-conditioned share matrix.
func testMatrix(regions, events int) *mat.Dense {
	y := mat.NewDense(regions, events, nil)
	for i := 0; i < regions; i++ {
		for j := 0; j < events; j++ {
			v := 0.5 + 0.3*math.Sin(float64(i+1)*0.7)*math.Cos(float64(j+1)*0.4) +
				0.15*math.Sin(float64((i+2)*(j+1))*0.13)
			y.Set(i, j, v)
		}
	}
	return y
}

func TestComputeShape(t *testing.T) {
	y := testMatrix(12, 6)

	tests := []struct {
		name     string
		rank     int
		opts     []Option
		wantCols int
	}{
		{name: "plain", rank: 3, wantCols: 3},
		{name: "with bias", rank: 3, opts: []Option{WithBias(true)}, wantCols: 4},
		{name: "full rank", rank: 6, wantCols: 6},
		{name: "clipped", rank: 40, wantCols: 6},
		{name: "clipped with bias", rank: 40, opts: []Option{WithBias(true)}, wantCols: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Compute(y, tt.rank, tt.opts...)
			require.NoError(t, err)
			r, c := u.Dims()
			require.Equal(t, 12, r)
			require.Equal(t, tt.wantCols, c)
		})
	}
}

func TestComputeBiasColumn(t *testing.T) {
	u, err := Compute(testMatrix(9, 5), 2, WithBias(true))
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		require.Equal(t, 1.0, u.At(i, 2))
	}
}

func TestComputeErrors(t *testing.T) {
	y := testMatrix(8, 4)

	_, err := Compute(y, 0)
	require.ErrorIs(t, err, vote.ErrInvalidDimension)
	_, err = Compute(y, -2)
	require.ErrorIs(t, err, vote.ErrInvalidDimension)
	_, err = Compute(y, 5, WithStrictRank(true))
	require.ErrorIs(t, err, vote.ErrInvalidDimension)
	_, err = Compute(y, 8, WithWeights([]float64{1, 2, 3}))
	require.ErrorIs(t, err, vote.ErrInvalidDimension)
	_, err = Compute(y, 2, WithWeights([]float64{1, 2, 3, 4, 5, 6, 7, 0}))
	require.ErrorIs(t, err, vote.ErrInvalidDimension)

	// Strict rank at exactly min(R, V) is still fine.
	_, err = Compute(y, 4, WithStrictRank(true))
	require.NoError(t, err)
}

func TestComputeDeterminism(t *testing.T) {
	y := testMatrix(20, 8)
	weights := make([]float64, 20)
	for i := range weights {
		weights[i] = 10 + float64(i)
	}

	a, err := Compute(y, 4, WithBias(true), WithWeights(weights))
	require.NoError(t, err)
	b, err := Compute(y, 4, WithBias(true), WithWeights(weights))
	require.NoError(t, err)
	require.Equal(t, a.RawMatrix().Data, b.RawMatrix().Data)
}

func TestComputeSignConvention(t *testing.T) {
	u, err := Compute(testMatrix(15, 7), 5)
	require.NoError(t, err)
	r, c := u.Dims()
	for j := 0; j < c; j++ {
		largest := 0.0
		for i := 0; i < r; i++ {
			if math.Abs(u.At(i, j)) > math.Abs(largest) {
				largest = u.At(i, j)
			}
		}
		require.Greater(t, largest, 0.0, "direction %d", j)
	}
}

func TestComputeUnitDirections(t *testing.T) {
	u, err := Compute(testMatrix(10, 6), 3, WithUnitDirections(true))
	require.NoError(t, err)
	for j := 0; j < 3; j++ {
		norm := 0.0
		for i := 0; i < 10; i++ {
			norm += u.At(i, j) * u.At(i, j)
		}
		require.InDelta(t, 1.0, math.Sqrt(norm), 1e-10, "direction %d", j)
	}
}

func TestComputeWeightedDiffersFromPlain(t *testing.T) {
	y := testMatrix(14, 6)
	weights := make([]float64, 14)
	for i := range weights {
		weights[i] = 1 + 10*float64(i%3)
	}

	plain, err := Compute(y, 3)
	require.NoError(t, err)
	weighted, err := Compute(y, 3, WithWeights(weights))
	require.NoError(t, err)
	require.NotEqual(t, plain.RawMatrix().Data, weighted.RawMatrix().Data)

	// Uniform weights reduce to the plain factorization.
	uniform, err := Compute(y, 3, WithWeights([]float64{7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7}))
	require.NoError(t, err)
	require.InDeltaSlice(t, plain.RawMatrix().Data, uniform.RawMatrix().Data, 1e-10)
}

func TestComputeCentering(t *testing.T) {
	y := testMatrix(10, 5)

	centered, err := Compute(y, 2, WithCentering(true))
	require.NoError(t, err)
	plain, err := Compute(y, 2)
	require.NoError(t, err)
	require.NotEqual(t, plain.RawMatrix().Data, centered.RawMatrix().Data)
}

func TestComputeInputNotMutated(t *testing.T) {
	y := testMatrix(6, 4)
	before := append([]float64(nil), y.RawMatrix().Data...)

	_, err := Compute(y, 2, WithCentering(true), WithWeights([]float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, err)
	require.Equal(t, before, y.RawMatrix().Data)
}

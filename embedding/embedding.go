// Package embedding derives a low-rank latent representation of reporting
// regions from a fully observed matrix of historical outcomes. The embedding
// is computed once per model and reused across every prediction call.
package embedding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/n0madic/go-vote-prediction/vote"
)

type config struct {
	weights  []float64
	addBias  bool
	center   bool
	strict   bool
	unscaled bool
}

// Option configures the factorization.
type Option func(*config)

// WithWeights enables a weighted factorization: row i of the historical
// matrix is scaled by sqrt(weights[i]/mean(weights)) before the SVD and the
// scaling is undone on the resulting embedding rows, so heavier regions
// steer the latent directions without distorting their coordinates.
func WithWeights(weights []float64) Option {
	return func(c *config) {
		c.weights = weights
	}
}

// WithBias appends a constant column of ones to the embedding, acting as an
// intercept for the downstream regression.
func WithBias(addBias bool) Option {
	return func(c *config) {
		c.addBias = addBias
	}
}

// WithCentering subtracts each event's mean share across regions before the
// factorization. Off by default; the bias column covers the level term.
func WithCentering(center bool) Option {
	return func(c *config) {
		c.center = center
	}
}

// WithStrictRank makes a rank above min(R, V) fail with ErrInvalidDimension
// instead of being clipped. The default policy clips silently.
func WithStrictRank(strict bool) Option {
	return func(c *config) {
		c.strict = strict
	}
}

// WithUnitDirections keeps the latent directions at unit norm instead of
// scaling each by its singular value. The default scaling lets the latent
// coordinates carry variance information so a single ridge strength acts
// uniformly across dimensions.
func WithUnitDirections(unit bool) Option {
	return func(c *config) {
		c.unscaled = unit
	}
}

// Compute performs a truncated SVD of the R-by-V historical matrix and
// returns the R-by-rank matrix of top left singular directions, plus a bias
// column when requested. Rank must be at least 1; a rank above min(R, V) is
// clipped unless WithStrictRank is set. The sign ambiguity of the
// factorization is resolved by forcing the largest-magnitude entry of each
// direction to be positive, so identical inputs always yield identical
// embeddings.
func Compute(historical mat.Matrix, rank int, opts ...Option) (*mat.Dense, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	r, v := historical.Dims()
	if r < 1 || v < 1 {
		return nil, fmt.Errorf("historical matrix is %dx%d, need at least one region and one event: %w",
			r, v, vote.ErrInvalidDimension)
	}
	if rank < 1 {
		return nil, fmt.Errorf("rank must be at least 1, got %d: %w", rank, vote.ErrInvalidDimension)
	}
	maxRank := r
	if v < maxRank {
		maxRank = v
	}
	if rank > maxRank {
		if cfg.strict {
			return nil, fmt.Errorf("rank %d exceeds min(regions=%d, events=%d): %w",
				rank, r, v, vote.ErrInvalidDimension)
		}
		rank = maxRank
	}

	y := mat.DenseCopyOf(historical)

	if cfg.center {
		for j := 0; j < v; j++ {
			mean := 0.0
			for i := 0; i < r; i++ {
				mean += y.At(i, j)
			}
			mean /= float64(r)
			for i := 0; i < r; i++ {
				y.Set(i, j, y.At(i, j)-mean)
			}
		}
	}

	var rowScale []float64
	if cfg.weights != nil {
		if len(cfg.weights) != r {
			return nil, fmt.Errorf("weight vector length %d does not match %d regions: %w",
				len(cfg.weights), r, vote.ErrInvalidDimension)
		}
		if err := vote.ValidateWeights(cfg.weights); err != nil {
			return nil, err
		}
		mean := 0.0
		for _, w := range cfg.weights {
			mean += w
		}
		mean /= float64(r)
		rowScale = make([]float64, r)
		for i, w := range cfg.weights {
			rowScale[i] = math.Sqrt(w / mean)
			for j := 0; j < v; j++ {
				y.Set(i, j, y.At(i, j)*rowScale[i])
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(y, mat.SVDThin) {
		return nil, fmt.Errorf("svd of %dx%d historical matrix failed: %w", r, v, vote.ErrNumericalInstability)
	}
	var left mat.Dense
	svd.UTo(&left)
	svals := svd.Values(nil)

	cols := rank
	if cfg.addBias {
		cols++
	}
	u := mat.NewDense(r, cols, nil)
	for j := 0; j < rank; j++ {
		// Fixed sign convention: the entry of largest magnitude in each
		// direction is positive. First index wins ties.
		sign := 1.0
		largest := 0.0
		for i := 0; i < r; i++ {
			if a := math.Abs(left.At(i, j)); a > largest {
				largest = a
				if left.At(i, j) < 0 {
					sign = -1
				} else {
					sign = 1
				}
			}
		}
		scale := sign
		if !cfg.unscaled {
			scale *= svals[j]
		}
		for i := 0; i < r; i++ {
			val := left.At(i, j) * scale
			if rowScale != nil {
				val /= rowScale[i]
			}
			u.Set(i, j, val)
		}
	}
	if cfg.addBias {
		for i := 0; i < r; i++ {
			u.Set(i, rank, 1)
		}
	}
	return u, nil
}

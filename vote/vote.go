// Package vote holds the shared types of the prediction library: the
// partially observed result vector, the error taxonomy used by every
// predictor, and the weighted aggregation of a completed vector into a
// single national share.
package vote

import (
	"errors"
	"fmt"
	"math"
)

// Error taxonomy shared by all predictors. Fatal errors abort a call with no
// partial result; ErrNotConverged is warning-level and accompanies a usable
// best-effort result instead of replacing it.
var (
	// ErrInvalidDimension reports a rank, shape, or value incompatible with
	// the supplied data. Raised at construction or call time, never silently
	// corrected.
	ErrInvalidDimension = errors.New("invalid dimension")

	// ErrEmptyObservationSet reports a prediction request in which no region
	// has reported yet. No meaningful regression is possible.
	ErrEmptyObservationSet = errors.New("empty observation set")

	// ErrNumericalInstability reports a singular or ill-conditioned
	// regression system. Increase regularization or wait for more regions.
	ErrNumericalInstability = errors.New("numerical instability")

	// ErrNotConverged reports an iterative solver that exhausted its
	// iteration budget. Best-effort coefficients are still returned.
	ErrNotConverged = errors.New("solver did not converge")
)

// Partial is a partially reported result vector over reporting regions. Each
// entry either carries an observed share in [0, 1] or is explicitly
// unobserved. The observation mask is a separate boolean slice, so an
// unreported entry never participates in arithmetic by accident.
type Partial struct {
	shares   []float64
	observed []bool
}

// NewPartial returns an all-unobserved vector over n regions.
func NewPartial(n int) (*Partial, error) {
	if n < 1 {
		return nil, fmt.Errorf("region count must be positive, got %d: %w", n, ErrInvalidDimension)
	}
	return &Partial{
		shares:   make([]float64, n),
		observed: make([]bool, n),
	}, nil
}

// PartialFromSlices builds a Partial from a value slice and a parallel
// observation mask. Values at unobserved positions are ignored.
func PartialFromSlices(shares []float64, observed []bool) (*Partial, error) {
	if len(shares) == 0 || len(shares) != len(observed) {
		return nil, fmt.Errorf("shares length %d and mask length %d must match and be positive: %w",
			len(shares), len(observed), ErrInvalidDimension)
	}
	p, err := NewPartial(len(shares))
	if err != nil {
		return nil, err
	}
	for i, ok := range observed {
		if !ok {
			continue
		}
		if err := p.Set(i, shares[i]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Len returns the number of reporting regions.
func (p *Partial) Len() int {
	return len(p.shares)
}

// Set records an observed share for region i.
func (p *Partial) Set(i int, share float64) error {
	if i < 0 || i >= len(p.shares) {
		return fmt.Errorf("region index %d out of range [0, %d): %w", i, len(p.shares), ErrInvalidDimension)
	}
	if math.IsNaN(share) || share < 0 || share > 1 {
		return fmt.Errorf("region %d: observed share %v outside [0, 1]: %w", i, share, ErrInvalidDimension)
	}
	p.shares[i] = share
	p.observed[i] = true
	return nil
}

// Unset marks region i as unobserved again. Out-of-range indices are ignored.
func (p *Partial) Unset(i int) {
	if i < 0 || i >= len(p.shares) {
		return
	}
	p.shares[i] = 0
	p.observed[i] = false
}

// Observed reports whether region i has a recorded share.
func (p *Partial) Observed(i int) bool {
	return i >= 0 && i < len(p.observed) && p.observed[i]
}

// At returns the share of region i and whether it is observed.
func (p *Partial) At(i int) (float64, bool) {
	if !p.Observed(i) {
		return 0, false
	}
	return p.shares[i], true
}

// ObservedIndices returns the indices of all reported regions in ascending
// order.
func (p *Partial) ObservedIndices() []int {
	idx := make([]int, 0, len(p.observed))
	for i, ok := range p.observed {
		if ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// NumObserved returns the number of reported regions.
func (p *Partial) NumObserved() int {
	n := 0
	for _, ok := range p.observed {
		if ok {
			n++
		}
	}
	return n
}

// ValidateWeights checks that the weight vector is non-empty and every entry
// is strictly positive and finite.
func ValidateWeights(weights []float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("weight vector must not be empty: %w", ErrInvalidDimension)
	}
	for i, w := range weights {
		if !(w > 0) || math.IsInf(w, 0) {
			return fmt.Errorf("weight %d must be positive and finite, got %v: %w", i, w, ErrInvalidDimension)
		}
	}
	return nil
}

// Aggregate reduces a completed result vector to a single weighted share:
// sum(weights[i]*shares[i]) / sum(weights[i]). It is pure and total given
// positive weights and matching lengths.
func Aggregate(shares, weights []float64) (float64, error) {
	if len(shares) == 0 || len(shares) != len(weights) {
		return 0, fmt.Errorf("shares length %d and weights length %d must match and be positive: %w",
			len(shares), len(weights), ErrInvalidDimension)
	}
	if err := ValidateWeights(weights); err != nil {
		return 0, err
	}
	var num, den float64
	for i, s := range shares {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return 0, fmt.Errorf("share %d is not finite: %v: %w", i, s, ErrInvalidDimension)
		}
		num += weights[i] * s
		den += weights[i]
	}
	return num / den, nil
}

// Package baseline provides the non-latent comparison predictor: unreported
// regions are imputed with the weighted mean share of the regions that have
// reported.
package baseline

import (
	"fmt"

	"github.com/n0madic/go-vote-prediction/vote"
)

// Averaging imputes unreported regions with the weighted mean of the
// reported ones. It carries no latent state; every call is purely functional
// over its inputs, so concurrent FitPredict calls are safe.
type Averaging struct {
	weights []float64
}

// New returns an averaging predictor over the given strictly positive region
// weights.
func New(weights []float64) (*Averaging, error) {
	if err := vote.ValidateWeights(weights); err != nil {
		return nil, err
	}
	return &Averaging{weights: append([]float64(nil), weights...)}, nil
}

// Regions returns the number of reporting regions.
func (a *Averaging) Regions() int {
	return len(a.weights)
}

// Weights returns a copy of the region weight vector.
func (a *Averaging) Weights() []float64 {
	return append([]float64(nil), a.weights...)
}

// FitPredict copies reported shares through verbatim and fills every
// unreported region with the weighted mean of the reported ones.
func (a *Averaging) FitPredict(partial *vote.Partial) ([]float64, error) {
	if partial == nil || partial.Len() != len(a.weights) {
		got := 0
		if partial != nil {
			got = partial.Len()
		}
		return nil, fmt.Errorf("partial vector length %d does not match %d regions: %w",
			got, len(a.weights), vote.ErrInvalidDimension)
	}
	obs := partial.ObservedIndices()
	if len(obs) == 0 {
		return nil, fmt.Errorf("no region has reported: %w", vote.ErrEmptyObservationSet)
	}

	var num, den float64
	for _, i := range obs {
		share, _ := partial.At(i)
		num += a.weights[i] * share
		den += a.weights[i]
	}
	mean := num / den

	out := make([]float64, partial.Len())
	for i := range out {
		if share, ok := partial.At(i); ok {
			out[i] = share
		} else {
			out[i] = mean
		}
	}
	return out, nil
}

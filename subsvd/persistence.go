package subsvd

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/n0madic/go-vote-prediction/vote"
)

// modelState is the serializable form of a Model. The embedding is stored
// directly so loading does not refactorize the historical matrix.
type modelState struct {
	Version    int
	Likelihood int
	Regions    int
	Dims       int
	Rank       int
	AddBias    bool
	L2         float64
	Tol        float64
	MaxIter    int
	Weighted   bool
	Center     bool
	StrictRank bool
	Weights    []float64
	Embedding  []float64 // regions*dims, row-major
}

// Save serializes the model configuration and cached embedding to gob
// format.
func (m *Model) Save(w io.Writer) error {
	state := modelState{
		Version:    1,
		Likelihood: int(m.likelihood),
		Regions:    m.regions,
		Dims:       m.dims,
		Rank:       m.rank,
		AddBias:    m.addBias,
		L2:         m.l2,
		Tol:        m.tol,
		MaxIter:    m.maxIter,
		Weighted:   m.weighted,
		Center:     m.center,
		StrictRank: m.strictRank,
		Weights:    append([]float64(nil), m.weights...),
	}
	raw := m.u.RawMatrix()
	state.Embedding = make([]float64, len(raw.Data))
	copy(state.Embedding, raw.Data)
	return gob.NewEncoder(w).Encode(state)
}

// Load deserializes a model previously written by Save.
func Load(r io.Reader) (*Model, error) {
	var state modelState
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return nil, err
	}
	if state.Version != 1 {
		return nil, errors.New("unsupported model state version")
	}
	if state.Regions < 1 || state.Dims < 1 {
		return nil, fmt.Errorf("invalid stored shape %dx%d: %w", state.Regions, state.Dims, vote.ErrInvalidDimension)
	}
	if len(state.Embedding) != state.Regions*state.Dims {
		return nil, fmt.Errorf("embedding data length %d does not match %dx%d: %w",
			len(state.Embedding), state.Regions, state.Dims, vote.ErrInvalidDimension)
	}
	if len(state.Weights) != state.Regions {
		return nil, fmt.Errorf("weight vector length %d does not match %d regions: %w",
			len(state.Weights), state.Regions, vote.ErrInvalidDimension)
	}
	if err := vote.ValidateWeights(state.Weights); err != nil {
		return nil, err
	}
	lk := Likelihood(state.Likelihood)
	if lk != Gaussian && lk != Logistic {
		return nil, fmt.Errorf("unsupported likelihood %v: %w", lk, vote.ErrInvalidDimension)
	}
	if state.L2 < 0 || state.MaxIter < 1 || !(state.Tol > 0) {
		return nil, fmt.Errorf("invalid stored solver configuration: %w", vote.ErrInvalidDimension)
	}

	data := make([]float64, len(state.Embedding))
	copy(data, state.Embedding)
	return &Model{
		likelihood: lk,
		u:          mat.NewDense(state.Regions, state.Dims, data),
		regions:    state.Regions,
		dims:       state.Dims,
		rank:       state.Rank,
		addBias:    state.AddBias,
		l2:         state.L2,
		maxIter:    state.MaxIter,
		tol:        state.Tol,
		weighted:   state.Weighted,
		center:     state.Center,
		strictRank: state.StrictRank,
		weights:    append([]float64(nil), state.Weights...),
	}, nil
}

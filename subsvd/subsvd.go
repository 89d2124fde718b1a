// Package subsvd predicts the unreported entries of a partially observed
// result vector. A model is built once from a fully observed matrix of
// historical outcomes: the regions are embedded into a low-rank latent space
// and every prediction call fits a fresh regularized coefficient vector on
// the reported regions only, then reconstructs the full vector through the
// model's link function. Two likelihoods are supported: Gaussian (closed-form
// ridge solve, identity link with a hard [0,1] clamp) and Logistic (iterative
// Newton solve, sigmoid link).
package subsvd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/n0madic/go-vote-prediction/embedding"
	"github.com/n0madic/go-vote-prediction/vote"
)

// Likelihood selects how observed shares relate to the latent linear score.
type Likelihood int

const (
	// Gaussian models shares directly: closed-form ridge regression,
	// predictions clamped into [0, 1].
	Gaussian Likelihood = iota
	// Logistic models shares as Bernoulli means through a sigmoid link:
	// iterative Newton solve of the ridge-penalized cross-entropy.
	Logistic
)

func (l Likelihood) String() string {
	switch l {
	case Gaussian:
		return "gaussian"
	case Logistic:
		return "logistic"
	}
	return fmt.Sprintf("likelihood(%d)", int(l))
}

const (
	defaultRidge         = 1e-5
	defaultMaxIterations = 100
	defaultTolerance     = 1e-8
)

// Model completes partially observed result vectors from a cached latent
// embedding of reporting regions. The embedding is computed exactly once at
// construction; afterwards the model is read-only and every FitPredict call
// allocates its own scratch state, so concurrent calls against the same
// instance are safe.
type Model struct {
	likelihood Likelihood
	u          *mat.Dense // regions x dims embedding, immutable after New
	regions    int
	dims       int
	rank       int // effective latent rank, excluding the bias column
	addBias    bool
	l2         float64
	maxIter    int
	tol        float64
	weighted   bool
	center     bool
	strictRank bool
	weights    []float64
}

// Option configures a Model before its embedding is computed.
type Option func(*Model)

// WithRidge sets the l2 regularization strength. It must be non-negative;
// with zero regularization the regression system can become singular when
// fewer regions than latent dimensions have reported.
func WithRidge(l2 float64) Option {
	return func(m *Model) {
		m.l2 = l2
	}
}

// WithBias enables or disables the intercept column of the embedding.
// Enabled by default.
func WithBias(addBias bool) Option {
	return func(m *Model) {
		m.addBias = addBias
	}
}

// WithMaxIterations caps the Newton iterations of the logistic solve. The
// cap is the sole bound on solve latency; hitting it is non-fatal and is
// reported through Result.Converged.
func WithMaxIterations(n int) Option {
	return func(m *Model) {
		m.maxIter = n
	}
}

// WithTolerance sets the minimum loss improvement below which the logistic
// solve stops.
func WithTolerance(tol float64) Option {
	return func(m *Model) {
		m.tol = tol
	}
}

// WithWeightedEmbedding weights the factorization by the region weight
// vector, letting heavier regions steer the latent directions.
func WithWeightedEmbedding(weighted bool) Option {
	return func(m *Model) {
		m.weighted = weighted
	}
}

// WithCentering mean-centers each historical event across regions before the
// factorization. Off by default.
func WithCentering(center bool) Option {
	return func(m *Model) {
		m.center = center
	}
}

// WithStrictRank fails construction when the requested rank exceeds
// min(regions, events) instead of clipping it.
func WithStrictRank(strict bool) Option {
	return func(m *Model) {
		m.strictRank = strict
	}
}

// New builds a model from the fully observed historical matrix (rows are
// reporting regions, columns are past events) and the strictly positive
// region weight vector, and computes the rank-D embedding once.
func New(likelihood Likelihood, historical mat.Matrix, weights []float64, rank int, opts ...Option) (*Model, error) {
	if likelihood != Gaussian && likelihood != Logistic {
		return nil, fmt.Errorf("unsupported likelihood %v: %w", likelihood, vote.ErrInvalidDimension)
	}
	r, v := historical.Dims()
	if r < 1 || v < 1 {
		return nil, fmt.Errorf("historical matrix is %dx%d, need at least one region and one event: %w",
			r, v, vote.ErrInvalidDimension)
	}
	if len(weights) != r {
		return nil, fmt.Errorf("weight vector length %d does not match %d regions: %w",
			len(weights), r, vote.ErrInvalidDimension)
	}
	if err := vote.ValidateWeights(weights); err != nil {
		return nil, err
	}

	m := &Model{
		likelihood: likelihood,
		addBias:    true,
		l2:         defaultRidge,
		maxIter:    defaultMaxIterations,
		tol:        defaultTolerance,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.l2 < 0 || math.IsNaN(m.l2) {
		return nil, fmt.Errorf("ridge strength must be non-negative, got %v: %w", m.l2, vote.ErrInvalidDimension)
	}
	if m.maxIter < 1 {
		return nil, fmt.Errorf("iteration cap must be at least 1, got %d: %w", m.maxIter, vote.ErrInvalidDimension)
	}
	if !(m.tol > 0) {
		return nil, fmt.Errorf("tolerance must be positive, got %v: %w", m.tol, vote.ErrInvalidDimension)
	}

	embOpts := []embedding.Option{
		embedding.WithBias(m.addBias),
		embedding.WithCentering(m.center),
		embedding.WithStrictRank(m.strictRank),
	}
	if m.weighted {
		embOpts = append(embOpts, embedding.WithWeights(weights))
	}
	u, err := embedding.Compute(historical, rank, embOpts...)
	if err != nil {
		return nil, err
	}

	m.u = u
	m.regions, m.dims = u.Dims()
	m.rank = m.dims
	if m.addBias {
		m.rank--
	}
	m.weights = append([]float64(nil), weights...)
	return m, nil
}

// Likelihood returns the model's likelihood kind.
func (m *Model) Likelihood() Likelihood {
	return m.likelihood
}

// Regions returns the number of reporting regions.
func (m *Model) Regions() int {
	return m.regions
}

// Rank returns the effective latent rank after clipping, excluding the bias
// column.
func (m *Model) Rank() int {
	return m.rank
}

// Weights returns a copy of the region weight vector.
func (m *Model) Weights() []float64 {
	return append([]float64(nil), m.weights...)
}

// Embedding returns a copy of the cached region embedding.
func (m *Model) Embedding() *mat.Dense {
	return mat.DenseCopyOf(m.u)
}

// Result is the outcome of a single FitPredict call.
type Result struct {
	// Values is the completed result vector. Observed entries reproduce the
	// input verbatim; reconstructed entries lie in [0, 1].
	Values []float64

	// Coefficients is the latent coefficient vector fitted for this call.
	Coefficients []float64

	// Converged is false when the iterative solver exhausted its iteration
	// budget; Values then hold the best coefficients found. Always true for
	// the Gaussian likelihood.
	Converged bool

	// Iterations is the number of Newton steps taken. Zero for the Gaussian
	// likelihood.
	Iterations int
}

// FitPredict fits a fresh coefficient vector on the reported regions and
// reconstructs the full result vector. Observed entries are passed through
// exactly; only unreported entries come from the regression.
func (m *Model) FitPredict(partial *vote.Partial) (*Result, error) {
	if partial == nil || partial.Len() != m.regions {
		got := 0
		if partial != nil {
			got = partial.Len()
		}
		return nil, fmt.Errorf("partial vector length %d does not match %d regions: %w",
			got, m.regions, vote.ErrInvalidDimension)
	}
	obs := partial.ObservedIndices()
	if len(obs) == 0 {
		return nil, fmt.Errorf("no region has reported: %w", vote.ErrEmptyObservationSet)
	}

	uObs := mat.NewDense(len(obs), m.dims, nil)
	yObs := make([]float64, len(obs))
	for k, i := range obs {
		for j := 0; j < m.dims; j++ {
			uObs.Set(k, j, m.u.At(i, j))
		}
		yObs[k], _ = partial.At(i)
	}

	var (
		coeffs    []float64
		iters     int
		converged = true
		err       error
	)
	switch m.likelihood {
	case Gaussian:
		coeffs, err = m.solveRidge(uObs, yObs)
	case Logistic:
		coeffs, iters, converged, err = m.solveNewton(uObs, yObs)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Values:       make([]float64, m.regions),
		Coefficients: coeffs,
		Converged:    converged,
		Iterations:   iters,
	}
	row := make([]float64, m.dims)
	for i := 0; i < m.regions; i++ {
		mat.Row(row, i, m.u)
		score := floats.Dot(row, coeffs)
		var share float64
		if m.likelihood == Logistic {
			share = sigmoid(score)
		} else {
			share = clamp01(score)
		}
		if math.IsNaN(share) {
			return nil, fmt.Errorf("region %d reconstructed as NaN: %w", i, vote.ErrNumericalInstability)
		}
		res.Values[i] = share
	}
	// Pass-through: reported shares are reproduced verbatim, the regression
	// only fills the gaps.
	for _, i := range obs {
		res.Values[i], _ = partial.At(i)
	}
	return res, nil
}

// solveRidge solves (U'U + l2*I) w = U'y on the observed rows in closed form.
func (m *Model) solveRidge(uObs *mat.Dense, yObs []float64) ([]float64, error) {
	n, d := uObs.Dims()

	gram := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			s := 0.0
			for k := 0; k < n; k++ {
				s += uObs.At(k, i) * uObs.At(k, j)
			}
			if i == j {
				s += m.l2
			}
			gram.SetSym(i, j, s)
		}
	}
	rhs := mat.NewVecDense(d, nil)
	for j := 0; j < d; j++ {
		s := 0.0
		for k := 0; k < n; k++ {
			s += uObs.At(k, j) * yObs[k]
		}
		rhs.SetVec(j, s)
	}

	var chol mat.Cholesky
	if !chol.Factorize(gram) {
		return nil, fmt.Errorf("ridge system is singular with %d observed regions and %d latent dimensions; increase regularization: %w",
			n, d, vote.ErrNumericalInstability)
	}
	w := mat.NewVecDense(d, nil)
	if err := chol.SolveVecTo(w, rhs); err != nil {
		return nil, fmt.Errorf("ridge solve failed: %v: %w", err, vote.ErrNumericalInstability)
	}

	coeffs := make([]float64, d)
	copy(coeffs, w.RawVector().Data)
	for j, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d is not finite: %v: %w", j, c, vote.ErrNumericalInstability)
		}
	}
	return coeffs, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

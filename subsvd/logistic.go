package subsvd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/n0madic/go-vote-prediction/vote"
)

// solveNewton minimizes the ridge-penalized cross-entropy between the
// observed shares and sigmoid(U w) with Newton steps and a halving line
// search, starting from the zero vector. It stops when the loss improvement
// drops below the tolerance or the iteration cap is reached; exhausting the
// cap is non-fatal and returns the best coefficients found with
// converged == false.
func (m *Model) solveNewton(uObs *mat.Dense, yObs []float64) (coeffs []float64, iters int, converged bool, err error) {
	n, d := uObs.Dims()

	w := make([]float64, d)
	p := make([]float64, n)
	grad := make([]float64, d)
	trial := make([]float64, d)
	hess := mat.NewSymDense(d, nil)
	rhs := mat.NewVecDense(d, nil)
	step := mat.NewVecDense(d, nil)

	loss := m.logisticLoss(uObs, yObs, w, p)
	for iter := 1; iter <= m.maxIter; iter++ {
		// grad = U'(p - y) + l2*w
		for j := 0; j < d; j++ {
			grad[j] = m.l2 * w[j]
		}
		for k := 0; k < n; k++ {
			diff := p[k] - yObs[k]
			for j := 0; j < d; j++ {
				grad[j] += uObs.At(k, j) * diff
			}
		}

		// H = U' diag(p(1-p)) U + l2*I
		for i := 0; i < d; i++ {
			for j := i; j < d; j++ {
				s := 0.0
				for k := 0; k < n; k++ {
					s += uObs.At(k, i) * uObs.At(k, j) * p[k] * (1 - p[k])
				}
				if i == j {
					s += m.l2
				}
				hess.SetSym(i, j, s)
			}
		}

		var chol mat.Cholesky
		if !chol.Factorize(hess) {
			return nil, iter, false, fmt.Errorf("newton system is singular with %d observed regions and %d latent dimensions; increase regularization: %w",
				n, d, vote.ErrNumericalInstability)
		}
		for j := 0; j < d; j++ {
			rhs.SetVec(j, grad[j])
		}
		if solveErr := chol.SolveVecTo(step, rhs); solveErr != nil {
			return nil, iter, false, fmt.Errorf("newton solve failed: %v: %w", solveErr, vote.ErrNumericalInstability)
		}

		// Halving line search; the full step can overshoot on near-separable
		// observation sets.
		improved := false
		next := loss
		scale := 1.0
		for try := 0; try < 30; try++ {
			for j := 0; j < d; j++ {
				trial[j] = w[j] - scale*step.AtVec(j)
			}
			cand := m.logisticLoss(uObs, yObs, trial, p)
			if cand < loss {
				copy(w, trial)
				next = cand
				improved = true
				break
			}
			scale /= 2
		}
		if !improved {
			// No descent left along the Newton direction; the current point
			// is as good as it gets. Restore p for w before returning.
			m.logisticLoss(uObs, yObs, w, p)
			return w, iter, true, nil
		}
		if loss-next < m.tol {
			return w, iter, true, nil
		}
		loss = next
	}
	return w, m.maxIter, false, nil
}

// logisticLoss evaluates the penalized cross-entropy at w and fills p with
// sigmoid(U w) as a side effect.
func (m *Model) logisticLoss(uObs *mat.Dense, yObs []float64, w, p []float64) float64 {
	n, d := uObs.Dims()
	loss := 0.0
	for k := 0; k < n; k++ {
		z := 0.0
		for j := 0; j < d; j++ {
			z += uObs.At(k, j) * w[j]
		}
		p[k] = sigmoid(z)
		// -y*z + log(1+e^z), written to stay finite for any z.
		loss += math.Max(z, 0) - yObs[k]*z + math.Log1p(math.Exp(-math.Abs(z)))
	}
	sq := 0.0
	for _, v := range w {
		sq += v * v
	}
	return loss + 0.5*m.l2*sq
}

// SPDX-License-Identifier: MIT

package ellipse

import (
	"fmt"
	"math"

	"github.com/katalvlaran/tasreso/matrix"
)

// Axes is the eigen-decomposition of a positive-definite form.
//
// Column i of Rotation is the principal axis associated with the i-th live
// coordinate: axes are matched to the coordinate they are most aligned with,
// each column has a non-negative diagonal entry and det(Rotation) = +1.
type Axes struct {
	Rotation    *matrix.Dense
	Eigenvalues []float64
	HWHM        []float64 // √(2·ln2/λ)
	Volume      float64   // unit n-ball volume × ∏ HWHM
}

// PrincipalAxes diagonalizes the form.
//
// Errors: ErrNotPositiveDefinite when an eigenvalue is not strictly positive,
// or the wrapped matrix error when the Jacobi iteration fails.
func (f *Form) PrincipalAxes() (Axes, error) {
	n := f.Dim()
	vals, vecs, err := matrix.EigenSym(f.m)
	if err != nil {
		return Axes{}, fmt.Errorf("principal axes: %w", err)
	}

	// greedy match: largest |component| first
	perm := make([]int, n)
	axisUsed := make([]bool, n)
	vecUsed := make([]bool, n)
	for range n {
		best, bi, bk := -1.0, 0, 0
		for i := 0; i < n; i++ {
			if axisUsed[i] {
				continue
			}
			for k := 0; k < n; k++ {
				if vecUsed[k] {
					continue
				}
				if v := math.Abs(vecs.Value(i, k)); v > best {
					best, bi, bk = v, i, k
				}
			}
		}
		perm[bi] = bk
		axisUsed[bi], vecUsed[bk] = true, true
	}

	rot, _ := matrix.NewDense(n, n)
	out := Axes{
		Rotation:    rot,
		Eigenvalues: make([]float64, n),
		HWHM:        make([]float64, n),
	}
	for i := 0; i < n; i++ {
		k := perm[i]
		sign := 1.0
		if vecs.Value(i, k) < 0 {
			sign = -1
		}
		for r := 0; r < n; r++ {
			_ = rot.Set(r, i, sign*vecs.Value(r, k))
		}
		lam := vals[k]
		if !(lam > 0) {
			return Axes{}, fmt.Errorf("principal axes: %w (eigenvalue %g)", ErrNotPositiveDefinite, lam)
		}
		out.Eigenvalues[i] = lam
		out.HWHM[i] = math.Sqrt(2 * math.Ln2 / lam)
	}

	if det, _ := matrix.Det(rot); det < 0 {
		// flip the least-aligned axis
		worst := 0
		for i := 1; i < n; i++ {
			if math.Abs(rot.Value(i, i)) < math.Abs(rot.Value(worst, worst)) {
				worst = i
			}
		}
		for r := 0; r < n; r++ {
			_ = rot.Set(r, worst, -rot.Value(r, worst))
		}
	}

	out.Volume = unitBallVolume(n)
	for _, h := range out.HWHM {
		out.Volume *= h
	}

	return out, nil
}

// unitBallVolume returns π^(n/2)/Γ(n/2+1).
func unitBallVolume(n int) float64 {
	return math.Pow(math.Pi, float64(n)/2) / math.Gamma(float64(n)/2+1)
}

// SPDX-License-Identifier: MIT

package matrix

import "math"

// Eigen computes eigenvalues and eigenvectors of a symmetric matrix using
// classical Jacobi rotations (largest off-diagonal pivot first).
//
// Implementation:
//   - Stage 1: validate symmetry (relative tolerance tol).
//   - Stage 2: repeat up to maxIter rotations: pick the largest |A[p,q]|,
//     stop once it is below tol·‖A‖_F, otherwise annihilate it with a plane
//     rotation and accumulate the rotation into Q.
//   - Stage 3: eigenvalues are the diagonal of the rotated A; eigenvectors are
//     the columns of Q.
//
// Behavior highlights:
//   - The convergence test is relative to the Frobenius norm, so matrices whose
//     entries span many orders of magnitude (resolution forms do) converge.
//   - Eigenvalues are returned in diagonal order, unsorted.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrAsymmetry, ErrNaNInf,
//     ErrMatrixEigenFailed (no convergence).
//
// Complexity:
//   - O(n²) per pivot scan plus O(n) per rotation.
func Eigen(m *Dense, tol float64, maxIter int) ([]float64, *Dense, error) {
	if err := ValidateSymmetric(m, tol); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	if !m.IsFinite() {
		return nil, nil, matrixErrorf(opEigen, ErrNaNInf)
	}
	n := m.r
	a := m.Clone()
	symmetrizeInPlace(a)
	q, _ := NewIdentity(n)

	var norm float64
	for _, v := range a.data {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	limit := tol * norm

	converged := n == 1 || norm == 0
	for iter := 0; iter < maxIter && !converged; iter++ {
		// J.1: pivot (p,q) maximizing |A[p,q]|
		var maxOff float64
		p, r := 0, 1
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if off := math.Abs(a.data[i*n+j]); off > maxOff {
					maxOff, p, r = off, i, j
				}
			}
		}
		// J.2: convergence
		if maxOff <= limit {
			converged = true

			break
		}
		// J.3: rotation parameters
		app, aqq, apq := a.data[p*n+p], a.data[r*n+r], a.data[p*n+r]
		theta := (aqq - app) / (2 * apq)
		t := math.Copysign(1.0/(math.Abs(theta)+math.Hypot(theta, 1)), theta)
		c := 1.0 / math.Sqrt(t*t+1)
		s := t * c

		// J.4: apply to A
		for i := 0; i < n; i++ {
			if i == p || i == r {
				continue
			}
			aip, air := a.data[i*n+p], a.data[i*n+r]
			nip := c*aip - s*air
			nir := s*aip + c*air
			a.data[i*n+p], a.data[p*n+i] = nip, nip
			a.data[i*n+r], a.data[r*n+i] = nir, nir
		}
		a.data[p*n+p] = app - t*apq
		a.data[r*n+r] = aqq + t*apq
		a.data[p*n+r], a.data[r*n+p] = 0, 0

		// J.5: accumulate into Q
		for i := 0; i < n; i++ {
			qip, qir := q.data[i*n+p], q.data[i*n+r]
			q.data[i*n+p] = c*qip - s*qir
			q.data[i*n+r] = s*qip + c*qir
		}
	}
	if !converged {
		// final check after the last rotation
		var maxOff float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				maxOff = math.Max(maxOff, math.Abs(a.data[i*n+j]))
			}
		}
		if maxOff > limit {
			return nil, nil, matrixErrorf(opEigen, ErrMatrixEigenFailed)
		}
	}

	return a.Diag(), q, nil
}

// EigenSym is Eigen with tolerance and budget taken from options
// (WithEpsilon, WithMaxSweeps; one sweep is n² rotations).
func EigenSym(m *Dense, opts ...Option) ([]float64, *Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	o := gatherOptions(opts...)

	return Eigen(m, o.eps, o.maxSweeps*m.r*m.r)
}

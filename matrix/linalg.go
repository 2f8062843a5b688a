// SPDX-License-Identifier: MIT

// Package matrix - elementwise and product kernels.
//
// All kernels validate operands first, allocate a fresh result and never
// mutate their inputs. Loop orders are fixed (i-k-j for products) so results
// are bitwise reproducible for identical inputs.

package matrix

import "math"

func validateBinary(a, b *Dense) error {
	if err := ValidateNotNil(a); err != nil {
		return err
	}

	return ValidateNotNil(b)
}

func addSub(a, b *Dense, sign float64, tag string) (*Dense, error) {
	if err := validateBinary(a, b); err != nil {
		return nil, matrixErrorf(tag, err)
	}
	if err := ValidateSameShape(a, b); err != nil {
		return nil, matrixErrorf(tag, err)
	}
	out := &Dense{r: a.r, c: a.c, data: make([]float64, len(a.data)), validateNaNInf: a.validateNaNInf}
	for k := range a.data {
		out.data[k] = a.data[k] + sign*b.data[k]
	}

	return out, nil
}

// Add returns a + b. Errors: ErrNilMatrix, ErrDimensionMismatch.
func Add(a, b *Dense) (*Dense, error) { return addSub(a, b, +1, opAdd) }

// Sub returns a - b. Errors: ErrNilMatrix, ErrDimensionMismatch.
func Sub(a, b *Dense) (*Dense, error) { return addSub(a, b, -1, opSub) }

// Mul returns the matrix product a·b.
//
// Implementation:
//   - Stage 1: validate non-nil operands and a.Cols == b.Rows.
//   - Stage 2: i-k-j loop over flat buffers; zero a[i,k] entries are skipped,
//     which matters for the sparse instrument matrices built by the solvers.
//
// Complexity: O(r·k·c).
func Mul(a, b *Dense) (*Dense, error) {
	if err := validateBinary(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	out := &Dense{r: a.r, c: b.c, data: make([]float64, a.r*b.c), validateNaNInf: a.validateNaNInf}
	for i := 0; i < a.r; i++ {
		rowOut := out.data[i*b.c : (i+1)*b.c]
		for k := 0; k < a.c; k++ {
			aik := a.data[i*a.c+k]
			if aik == 0 {
				continue
			}
			rowB := b.data[k*b.c : (k+1)*b.c]
			for j, bkj := range rowB {
				rowOut[j] += aik * bkj
			}
		}
	}

	return out, nil
}

// MulChain multiplies left to right: ms[0]·ms[1]·…·ms[n-1].
func MulChain(ms ...*Dense) (*Dense, error) {
	if len(ms) == 0 {
		return nil, matrixErrorf(opMul, ErrNilMatrix)
	}
	acc := ms[0]
	if err := ValidateNotNil(acc); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	var err error
	for _, m := range ms[1:] {
		if acc, err = Mul(acc, m); err != nil {
			return nil, err
		}
	}

	return acc, nil
}

// Transpose returns mᵀ.
func Transpose(m *Dense) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	out := &Dense{r: m.c, c: m.r, data: make([]float64, len(m.data)), validateNaNInf: m.validateNaNInf}
	for i := 0; i < m.r; i++ {
		for j := 0; j < m.c; j++ {
			out.data[j*m.r+i] = m.data[i*m.c+j]
		}
	}

	return out, nil
}

// Scale returns alpha·m.
func Scale(m *Dense, alpha float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	if !isFinite(alpha) {
		return nil, matrixErrorf(opScale, ErrNaNInf)
	}
	out := m.Clone()
	for k := range out.data {
		out.data[k] *= alpha
	}

	return out, nil
}

// MatVec returns m·x.
func MatVec(m *Dense, x []float64) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err := ValidateVecLen(x, m.c); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	out := make([]float64, m.r)
	for i := 0; i < m.r; i++ {
		var s float64
		for j, xj := range x {
			s += m.data[i*m.c+j] * xj
		}
		out[i] = s
	}

	return out, nil
}

// VecMat returns the row vector xᵀ·m.
func VecMat(x []float64, m *Dense) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err := ValidateVecLen(x, m.r); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	out := make([]float64, m.c)
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		for j := 0; j < m.c; j++ {
			out[j] += xi * m.data[i*m.c+j]
		}
	}

	return out, nil
}

// Congruence returns the congruence transform nᵀ·m·n of a square m.
//
// Behavior highlights:
//   - The result is square with side n.Cols.
//   - When m is symmetric the result is re-symmetrized by averaging mirrored
//     entries, removing the round-off asymmetry of the two products.
//
// Errors: ErrNilMatrix, ErrNonSquare, ErrDimensionMismatch.
// Complexity: O(k²·c + k·c²) for m k×k and n k×c.
func Congruence(n, m *Dense) (*Dense, error) {
	if err := validateBinary(n, m); err != nil {
		return nil, matrixErrorf(opCongruence, err)
	}
	if err := ValidateSquare(m); err != nil {
		return nil, matrixErrorf(opCongruence, err)
	}
	if m.r != n.r {
		return nil, matrixErrorf(opCongruence, ErrDimensionMismatch)
	}
	nt, _ := Transpose(n)
	mn, err := Mul(m, n)
	if err != nil {
		return nil, matrixErrorf(opCongruence, err)
	}
	out, err := Mul(nt, mn)
	if err != nil {
		return nil, matrixErrorf(opCongruence, err)
	}
	if ValidateSymmetric(m, DefaultEpsilon) == nil {
		symmetrizeInPlace(out)
	}

	return out, nil
}

// Symmetrize returns (m + mᵀ)/2 for a square m.
func Symmetrize(m *Dense) (*Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, matrixErrorf(opSymmetrize, err)
	}
	out := m.Clone()
	symmetrizeInPlace(out)

	return out, nil
}

func symmetrizeInPlace(m *Dense) {
	n := m.r
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			avg := 0.5 * (m.data[i*n+j] + m.data[j*n+i])
			m.data[i*n+j], m.data[j*n+i] = avg, avg
		}
	}
}

// AllClose reports |a[i,j]-b[i,j]| <= atol + rtol·|b[i,j]| for every entry.
// Negative tolerances are normalized; NaN/Inf tolerances give ErrNaNInf.
func AllClose(a, b Matrix, rtol, atol float64) (bool, error) {
	if !isFinite(rtol) || !isFinite(atol) {
		return false, matrixErrorf(opAllClose, ErrNaNInf)
	}
	rtol, atol = math.Abs(rtol), math.Abs(atol)
	if err := ValidateNotNil(a); err != nil {
		return false, matrixErrorf(opAllClose, err)
	}
	if err := ValidateNotNil(b); err != nil {
		return false, matrixErrorf(opAllClose, err)
	}
	if err := ValidateSameShape(a, b); err != nil {
		return false, matrixErrorf(opAllClose, err)
	}
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			av, _ := a.At(i, j)
			bv, _ := b.At(i, j)
			if math.Abs(av-bv) > atol+rtol*math.Abs(bv) {
				return false, nil
			}
		}
	}

	return true, nil
}

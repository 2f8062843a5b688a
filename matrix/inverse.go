// SPDX-License-Identifier: MIT

package matrix

import "math"

// Inverse returns m⁻¹ using Gauss-Jordan elimination with partial pivoting.
//
// Implementation:
//   - Stage 1: validate square, finite input.
//   - Stage 2: for each column pick the row with the largest |pivot| among
//     the remaining rows, swap it up, normalize and eliminate the column from
//     every other row of the augmented [A | I] pair.
//   - Stage 3: the right half is the inverse.
//
// Behavior highlights:
//   - Instrument transforms routinely have zero leading pivots (e.g. rows
//     that only touch later coordinates); partial pivoting handles them.
//   - A pivot whose magnitude is below pivotTol·max|A| is reported singular.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrNaNInf, ErrSingular (all tagged "Inverse").
//
// Complexity:
//   - Time O(n³), Space O(n²).
func Inverse(m *Dense, opts ...Option) (*Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, matrixErrorf(opInverse, err)
	}
	if !m.IsFinite() {
		return nil, matrixErrorf(opInverse, ErrNaNInf)
	}
	o := gatherOptions(opts...)
	n := m.r

	a := m.Clone()
	inv, _ := NewIdentity(n)
	inv.validateNaNInf = m.validateNaNInf

	var scale float64
	for _, v := range a.data {
		scale = math.Max(scale, math.Abs(v))
	}
	threshold := o.pivotTol * scale

	for col := 0; col < n; col++ {
		// pivot search
		p := col
		best := math.Abs(a.data[col*n+col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a.data[r*n+col]); v > best {
				best, p = v, r
			}
		}
		if best == 0 || best <= threshold {
			return nil, matrixErrorf(opInverse, ErrSingular)
		}
		if p != col {
			swapRows(a, p, col)
			swapRows(inv, p, col)
		}

		piv := a.data[col*n+col]
		for j := 0; j < n; j++ {
			a.data[col*n+j] /= piv
			inv.data[col*n+j] /= piv
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := a.data[r*n+col]
			if f == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				a.data[r*n+j] -= f * a.data[col*n+j]
				inv.data[r*n+j] -= f * inv.data[col*n+j]
			}
		}
	}
	if !inv.IsFinite() {
		return nil, matrixErrorf(opInverse, ErrSingular)
	}

	return inv, nil
}

// Det returns the determinant via PLU factorization with partial pivoting.
// A structurally singular matrix yields 0 with a nil error.
func Det(m *Dense) (float64, error) {
	if err := ValidateSquare(m); err != nil {
		return 0, matrixErrorf(opDet, err)
	}
	if !m.IsFinite() {
		return 0, matrixErrorf(opDet, ErrNaNInf)
	}
	n := m.r
	a := m.Clone()
	det := 1.0
	for col := 0; col < n; col++ {
		p := col
		best := math.Abs(a.data[col*n+col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(a.data[r*n+col]); v > best {
				best, p = v, r
			}
		}
		if best == 0 {
			return 0, nil
		}
		if p != col {
			swapRows(a, p, col)
			det = -det
		}
		piv := a.data[col*n+col]
		det *= piv
		for r := col + 1; r < n; r++ {
			f := a.data[r*n+col] / piv
			if f == 0 {
				continue
			}
			for j := col; j < n; j++ {
				a.data[r*n+j] -= f * a.data[col*n+j]
			}
		}
	}

	return det, nil
}

func swapRows(m *Dense, i, j int) {
	ri := m.data[i*m.c : (i+1)*m.c]
	rj := m.data[j*m.c : (j+1)*m.c]
	for k := range ri {
		ri[k], rj[k] = rj[k], ri[k]
	}
}

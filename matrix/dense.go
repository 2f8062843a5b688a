// SPDX-License-Identifier: MIT

// Package matrix - Dense storage (row-major) & safe accessors.
//
// Purpose:
//   - Provide a row-major buffer with the explicit index formula i*cols + j.
//   - Keep the public surface safe: At/Set return errors instead of panicking.
//   - Support copy-based submatrix extraction (Induced), which the
//     quadratic-form engine uses to drop rows and columns.
//
// Complexity quicksheet:
//   - NewDense: O(r*c) zero-init; At/Set: O(1); Clone: O(r*c); Induced: O(r'*c').

package matrix

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ctxAt  = "At"
	ctxSet = "Set"
)

// denseErrorf wraps an error with a uniform Dense context and callsite indices.
func denseErrorf(method string, row, col int, err error) error {
	return fmt.Errorf("Dense.%s(%d,%d): %w", method, row, col, err)
}

// Dense is a concrete row-major matrix.
//   - r,c hold dimensions (rows, cols).
//   - data is a flat buffer of length r*c in row-major order (offset = i*c + j).
//   - validateNaNInf enables NaN/Inf rejection in Set.
type Dense struct {
	r, c           int
	data           []float64
	validateNaNInf bool
}

var (
	_ Matrix       = (*Dense)(nil)
	_ fmt.Stringer = (*Dense)(nil)
)

// NewDense creates an r×c zero matrix using row-major storage.
//
// Implementation:
//   - Stage 1: validate rows>0 && cols>0; else ErrInvalidDimensions.
//   - Stage 2: allocate a zero-filled buffer and apply the numeric policy.
//
// Errors:
//   - ErrInvalidDimensions (shape contract violation).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func NewDense(rows, cols int, opts ...Option) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidDimensions
	}
	o := gatherOptions(opts...)

	return &Dense{r: rows, c: cols, data: make([]float64, rows*cols), validateNaNInf: o.validateNaNInf}, nil
}

// NewFromRows copies a rectangular [][]float64 literal into a new Dense.
// Ragged or empty input yields ErrBadShape; non-finite entries yield ErrNaNInf
// unless WithNoValidateNaNInf is given.
func NewFromRows(rows [][]float64, opts ...Option) (*Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrBadShape
	}
	m, err := NewDense(len(rows), len(rows[0]), opts...)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != m.c {
			return nil, fmt.Errorf("NewFromRows: row %d: %w", i, ErrBadShape)
		}
		for j, v := range row {
			if m.validateNaNInf && !isFinite(v) {
				return nil, denseErrorf(ctxSet, i, j, ErrNaNInf)
			}
			m.data[i*m.c+j] = v
		}
	}

	return m, nil
}

// NewIdentity returns the n×n identity matrix.
func NewIdentity(n int) (*Dense, error) {
	m, err := NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}

	return m, nil
}

// NewDiag returns a square matrix with d on its diagonal.
func NewDiag(d []float64, opts ...Option) (*Dense, error) {
	m, err := NewDense(len(d), len(d), opts...)
	if err != nil {
		return nil, err
	}
	for i, v := range d {
		if m.validateNaNInf && !isFinite(v) {
			return nil, denseErrorf(ctxSet, i, i, ErrNaNInf)
		}
		m.data[i*m.c+i] = v
	}

	return m, nil
}

// Rows returns the row count.
func (m *Dense) Rows() int { return m.r }

// Cols returns the column count.
func (m *Dense) Cols() int { return m.c }

func (m *Dense) indexOf(row, col int) (int, error) {
	if row < 0 || row >= m.r || col < 0 || col >= m.c {
		return 0, ErrOutOfRange
	}

	return row*m.c + col, nil
}

// At returns the value at (row, col) or ErrOutOfRange.
func (m *Dense) At(row, col int) (float64, error) {
	off, err := m.indexOf(row, col)
	if err != nil {
		return 0, denseErrorf(ctxAt, row, col, err)
	}

	return m.data[off], nil
}

// Set writes v at (row, col). Non-finite values are rejected with ErrNaNInf
// under the default policy.
func (m *Dense) Set(row, col int, v float64) error {
	off, err := m.indexOf(row, col)
	if err != nil {
		return denseErrorf(ctxSet, row, col, err)
	}
	if m.validateNaNInf && !isFinite(v) {
		return denseErrorf(ctxSet, row, col, ErrNaNInf)
	}
	m.data[off] = v

	return nil
}

// Value is the unchecked reader used by numeric code that has already
// validated shapes. It panics on out-of-range indices like slice indexing.
func (m *Dense) Value(row, col int) float64 {
	if row < 0 || row >= m.r || col < 0 || col >= m.c {
		panic(denseErrorf("Value", row, col, ErrOutOfRange))
	}

	return m.data[row*m.c+col]
}

// Clone returns a deep copy.
func (m *Dense) Clone() *Dense {
	buf := make([]float64, len(m.data))
	copy(buf, m.data)

	return &Dense{r: m.r, c: m.c, data: buf, validateNaNInf: m.validateNaNInf}
}

// Row returns a copy of row i, or nil when i is out of range.
func (m *Dense) Row(i int) []float64 {
	if i < 0 || i >= m.r {
		return nil
	}
	out := make([]float64, m.c)
	copy(out, m.data[i*m.c:(i+1)*m.c])

	return out
}

// Diag returns a copy of the main diagonal.
func (m *Dense) Diag() []float64 {
	n := min(m.r, m.c)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = m.data[i*m.c+i]
	}

	return out
}

// ToRows returns the contents as a freshly allocated [][]float64.
func (m *Dense) ToRows() [][]float64 {
	out := make([][]float64, m.r)
	for i := range out {
		out[i] = m.Row(i)
	}

	return out
}

// Flat returns a copy of the row-major buffer.
func (m *Dense) Flat() []float64 {
	out := make([]float64, len(m.data))
	copy(out, m.data)

	return out
}

// IsFinite reports whether every entry is finite.
func (m *Dense) IsFinite() bool {
	for _, v := range m.data {
		if !isFinite(v) {
			return false
		}
	}

	return true
}

// Induced materializes the submatrix selecting rowsIdx × colsIdx (copy).
//
// Implementation:
//   - Stage 1: validate every index against the source shape.
//   - Stage 2: copy the selected cells in the given order.
//
// Behavior highlights:
//   - Index order is preserved, so Induced can also permute.
//   - Duplicated indices are allowed and simply duplicate rows/columns.
//
// Errors:
//   - ErrInvalidDimensions on empty selections, ErrOutOfRange on bad indices.
func (m *Dense) Induced(rowsIdx, colsIdx []int) (*Dense, error) {
	if len(rowsIdx) == 0 || len(colsIdx) == 0 {
		return nil, matrixErrorf(opInduced, ErrInvalidDimensions)
	}
	for _, i := range rowsIdx {
		if i < 0 || i >= m.r {
			return nil, matrixErrorf(opInduced, ErrOutOfRange)
		}
	}
	for _, j := range colsIdx {
		if j < 0 || j >= m.c {
			return nil, matrixErrorf(opInduced, ErrOutOfRange)
		}
	}
	out := &Dense{
		r:              len(rowsIdx),
		c:              len(colsIdx),
		data:           make([]float64, len(rowsIdx)*len(colsIdx)),
		validateNaNInf: m.validateNaNInf,
	}
	for ii, i := range rowsIdx {
		for jj, j := range colsIdx {
			out.data[ii*out.c+jj] = m.data[i*m.c+j]
		}
	}

	return out, nil
}

// String renders the matrix one bracketed row per line using %g formatting.
func (m *Dense) String() string {
	var sb strings.Builder
	for i := 0; i < m.r; i++ {
		sb.WriteString("[")
		for j := 0; j < m.c; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.FormatFloat(m.data[i*m.c+j], 'g', 8, 64))
		}
		sb.WriteString("]\n")
	}

	return sb.String()
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// SPDX-License-Identifier: MIT

// Package ellipse operates on Gaussian quadratic forms exp(-½·xᵀ·M·x): slicing
// (Remove), marginalization (Integrate), principal axes and the 2-D/3-D/4-D
// descriptors used for plotting and sampling.
//
// Remove and Integrate are deliberately separate. Remove conditions a
// coordinate at its mean (a cross-section); Integrate marginalizes it (a
// projection). The marginal is never narrower than the slice.
package ellipse

import (
	"errors"
	"fmt"
	"slices"

	"github.com/katalvlaran/tasreso/matrix"
)

var (
	// ErrUnknownCoord indicates a coordinate that is not live in the form.
	ErrUnknownCoord = errors.New("ellipse: unknown coordinate")

	// ErrDuplicateCoord indicates a coordinate listed twice.
	ErrDuplicateCoord = errors.New("ellipse: duplicate coordinate")

	// ErrNotPositiveDefinite indicates a form with a non-positive diagonal or
	// eigenvalue where a Gaussian is required.
	ErrNotPositiveDefinite = errors.New("ellipse: form is not positive definite")

	// ErrBadSelection indicates a keep/integrate/remove selection that does
	// not partition the live coordinates.
	ErrBadSelection = errors.New("ellipse: bad coordinate selection")
)

// symTol is the relative asymmetry accepted by NewForm.
const symTol = 1e-9

// Form is an immutable quadratic form with a mean offset and the identifiers
// of its live coordinates. Every operation returns a new Form.
type Form struct {
	m      *matrix.Dense
	offset []float64
	coords []Coord
}

// NewForm copies m, offset and coords into a Form. A nil offset means zero.
//
// Errors: matrix.ErrNonSquare, matrix.ErrAsymmetry, matrix.ErrNaNInf,
// matrix.ErrDimensionMismatch, ErrDuplicateCoord.
func NewForm(m *matrix.Dense, offset []float64, coords []Coord) (*Form, error) {
	if err := matrix.ValidateSymmetric(m, symTol); err != nil {
		return nil, fmt.Errorf("ellipse: %w", err)
	}
	if err := matrix.ValidateFinite(m); err != nil {
		return nil, fmt.Errorf("ellipse: %w", err)
	}
	n := m.Rows()
	if len(coords) != n {
		return nil, fmt.Errorf("ellipse: %d coords for %d rows: %w", len(coords), n, matrix.ErrDimensionMismatch)
	}
	if offset == nil {
		offset = make([]float64, n)
	}
	if err := matrix.ValidateVecLen(offset, n); err != nil {
		return nil, fmt.Errorf("ellipse: offset: %w", err)
	}
	for i, c := range coords {
		if slices.Contains(coords[:i], c) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCoord, c)
		}
	}
	sym, _ := matrix.Symmetrize(m)

	return &Form{m: sym, offset: slices.Clone(offset), coords: slices.Clone(coords)}, nil
}

// Dim returns the number of live coordinates.
func (f *Form) Dim() int { return len(f.coords) }

// Coords returns a copy of the live coordinate list in matrix order.
func (f *Form) Coords() []Coord { return slices.Clone(f.coords) }

// Matrix returns a copy of the quadratic form.
func (f *Form) Matrix() *matrix.Dense { return f.m.Clone() }

// Offset returns a copy of the mean offset.
func (f *Form) Offset() []float64 { return slices.Clone(f.offset) }

// Index returns the matrix position of c.
func (f *Form) Index(c Coord) (int, bool) {
	i := slices.Index(f.coords, c)

	return i, i >= 0
}

// At returns the entry for the coordinate pair (a, b).
func (f *Form) At(a, b Coord) (float64, error) {
	i, ok := f.Index(a)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCoord, a)
	}
	j, ok := f.Index(b)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCoord, b)
	}

	return f.m.Value(i, j), nil
}

// Remove deletes the rows and columns of cs outright: a slice through the
// mean. All other entries are unchanged.
func (f *Form) Remove(cs ...Coord) (*Form, error) {
	if len(cs) == 0 {
		return f, nil
	}
	drop := make([]bool, len(f.coords))
	for _, c := range cs {
		i, ok := f.Index(c)
		if !ok {
			return nil, fmt.Errorf("remove: %w: %s", ErrUnknownCoord, c)
		}
		if drop[i] {
			return nil, fmt.Errorf("remove: %w: %s", ErrDuplicateCoord, c)
		}
		drop[i] = true
	}

	return f.keepIndices(func(i int) bool { return !drop[i] })
}

// Integrate marginalizes cs one at a time. For coordinate i the remaining
// block becomes Q' = Q₋ᵢ - Q[·,i]·Q[i,·]/Q[i,i] (the Schur complement) and the
// offset entry is dropped. The order of cs does not affect the result.
//
// Errors: ErrUnknownCoord, ErrDuplicateCoord, ErrNotPositiveDefinite when a
// pivot Q[i,i] is not strictly positive.
func (f *Form) Integrate(cs ...Coord) (*Form, error) {
	if dup := firstDuplicate(cs); dup >= 0 {
		return nil, fmt.Errorf("integrate: %w: %s", ErrDuplicateCoord, cs[dup])
	}
	out := f
	for _, c := range cs {
		var err error
		if out, err = out.integrateOne(c); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (f *Form) integrateOne(c Coord) (*Form, error) {
	k, ok := f.Index(c)
	if !ok {
		return nil, fmt.Errorf("integrate: %w: %s", ErrUnknownCoord, c)
	}
	n := len(f.coords)
	pivot := f.m.Value(k, k)
	if !(pivot > 0) {
		return nil, fmt.Errorf("integrate %s: %w (pivot %g)", c, ErrNotPositiveDefinite, pivot)
	}
	if n == 1 {
		return nil, fmt.Errorf("integrate %s: %w", c, ErrBadSelection)
	}

	keep := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != k {
			keep = append(keep, i)
		}
	}
	out, _ := matrix.NewDense(n-1, n-1)
	for a, i := range keep {
		for b, j := range keep {
			_ = out.Set(a, b, f.m.Value(i, j)-f.m.Value(i, k)*f.m.Value(k, j)/pivot)
		}
	}

	return f.withKept(out, keep), nil
}

// Select returns the sub-form on exactly cs, in the given order, by removing
// every other coordinate.
func (f *Form) Select(cs ...Coord) (*Form, error) {
	if dup := firstDuplicate(cs); dup >= 0 {
		return nil, fmt.Errorf("select: %w: %s", ErrDuplicateCoord, cs[dup])
	}
	idx := make([]int, len(cs))
	for a, c := range cs {
		i, ok := f.Index(c)
		if !ok {
			return nil, fmt.Errorf("select: %w: %s", ErrUnknownCoord, c)
		}
		idx[a] = i
	}
	sub, err := f.m.Induced(idx, idx)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	return f.withKept(sub, idx), nil
}

func (f *Form) keepIndices(keepFn func(int) bool) (*Form, error) {
	var keep []int
	for i := range f.coords {
		if keepFn(i) {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, ErrBadSelection
	}
	sub, err := f.m.Induced(keep, keep)
	if err != nil {
		return nil, err
	}

	return f.withKept(sub, keep), nil
}

func (f *Form) withKept(m *matrix.Dense, keep []int) *Form {
	off := make([]float64, len(keep))
	cs := make([]Coord, len(keep))
	for a, i := range keep {
		off[a] = f.offset[i]
		cs[a] = f.coords[i]
	}

	return &Form{m: m, offset: off, coords: cs}
}

func firstDuplicate(cs []Coord) int {
	for i, c := range cs {
		if slices.Contains(cs[:i], c) {
			return i
		}
	}

	return -1
}

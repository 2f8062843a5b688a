// SPDX-License-Identifier: MIT

package matrix_test

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/tasreso/matrix"
)

func TestInverse_RoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 4, 6, 13} {
		a := RandSPD(t, n, uint64(n))
		inv, err := matrix.Inverse(a)
		require.NoError(t, err)
		prod, err := matrix.Mul(a, inv)
		require.NoError(t, err)
		id, _ := matrix.NewIdentity(n)
		CompareClose(t, prod, id, 0, 1e-11)
	}
}

func TestInverse_ZeroLeadingPivot(t *testing.T) {
	// permutation-like matrix: plain Doolittle would hit a zero pivot
	a := MustRows(t, [][]float64{
		{0, 1, 0},
		{0, 0, 2},
		{3, 0, 0},
	})
	inv, err := matrix.Inverse(a)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 1.0 / 3, 1, 0, 0, 0, 0.5, 0}, inv.Flat(), 1e-15)
}

func TestInverse_Singular(t *testing.T) {
	a := MustRows(t, [][]float64{{1, 2}, {2, 4}})
	_, err := matrix.Inverse(a)
	require.ErrorIs(t, err, matrix.ErrSingular)

	_, err = matrix.Inverse(MustDense(t, 2, 3))
	require.ErrorIs(t, err, matrix.ErrNonSquare)

	lax, _ := matrix.NewDense(1, 1, matrix.WithNoValidateNaNInf())
	require.NoError(t, lax.Set(0, 0, math.Inf(1)))
	_, err = matrix.Inverse(lax)
	require.ErrorIs(t, err, matrix.ErrNaNInf)
}

func TestDet_MatchesGonum(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		a := RandDense(t, 5, 5, seed)
		got, err := matrix.Det(a)
		require.NoError(t, err)
		assert.InDelta(t, mat.Det(toGonum(a)), got, 1e-12)
	}
	d, err := matrix.Det(MustRows(t, [][]float64{{1, 2}, {2, 4}}))
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = matrix.Det(MustRows(t, [][]float64{{0, 1}, {1, 0}}))
	require.NoError(t, err)
	assert.Equal(t, -1.0, d)
}

func TestEigen_MatchesGonum(t *testing.T) {
	a := RandSPD(t, 6, 99)
	vals, vecs, err := matrix.EigenSym(a)
	require.NoError(t, err)

	var es mat.EigenSym
	require.True(t, es.Factorize(mat.NewSymDense(6, a.Flat()), false))
	want := es.Values(nil)
	got := append([]float64(nil), vals...)
	sort.Float64s(got)
	sort.Float64s(want)
	assert.InDeltaSlice(t, want, got, 1e-10)

	// A·v = λ·v for every column
	for k := 0; k < 6; k++ {
		v := make([]float64, 6)
		for i := range v {
			v[i] = MustAt(t, vecs, i, k)
		}
		av, err := matrix.MatVec(a, v)
		require.NoError(t, err)
		for i := range v {
			assert.InDelta(t, vals[k]*v[i], av[i], 1e-10)
		}
	}

	// orthonormal eigenvectors
	vt, _ := matrix.Transpose(vecs)
	qtq, _ := matrix.Mul(vt, vecs)
	id, _ := matrix.NewIdentity(6)
	CompareClose(t, qtq, id, 0, 1e-12)
}

func TestEigen_WideDynamicRange(t *testing.T) {
	a := MustRows(t, [][]float64{
		{4e5, 1e3, 0},
		{1e3, 2e2, 1e-3},
		{0, 1e-3, 1e-4},
	})
	vals, _, err := matrix.EigenSym(a)
	require.NoError(t, err)
	for _, v := range vals {
		assert.Greater(t, v, 0.0)
	}
}

func TestEigen_Errors(t *testing.T) {
	_, _, err := matrix.EigenSym(MustRows(t, [][]float64{{1, 2}, {0, 1}}))
	require.ErrorIs(t, err, matrix.ErrAsymmetry)

	_, _, err = matrix.Eigen(RandSPD(t, 5, 3), 1e-300, 1)
	require.ErrorIs(t, err, matrix.ErrMatrixEigenFailed)
}

func TestValidators(t *testing.T) {
	var nilDense *matrix.Dense
	require.ErrorIs(t, matrix.ValidateNotNil(nilDense), matrix.ErrNilMatrix)
	require.ErrorIs(t, matrix.ValidateNotNil(nil), matrix.ErrNilMatrix)
	require.ErrorIs(t, matrix.ValidateSquare(MustDense(t, 2, 3)), matrix.ErrNonSquare)
	require.ErrorIs(t, matrix.ValidateVecLen(nil, 2), matrix.ErrNilMatrix)
	require.ErrorIs(t, matrix.ValidateVecLen([]float64{1}, 2), matrix.ErrDimensionMismatch)
	require.NoError(t, matrix.ValidateFinite(hide{MustDense(t, 2, 2)}))
	require.NoError(t, matrix.ValidateSymmetric(hide{MustRows(t, [][]float64{{1, 2}, {2, 1}})}, 0))
}

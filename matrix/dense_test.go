// SPDX-License-Identifier: MIT

package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tasreso/matrix"
)

func TestNewDense_InvalidDimensions(t *testing.T) {
	for _, tc := range []struct{ r, c int }{{0, 1}, {1, 0}, {-1, 2}} {
		_, err := matrix.NewDense(tc.r, tc.c)
		require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
	}
}

func TestDense_AtSetBounds(t *testing.T) {
	m := MustDense(t, 2, 3)
	require.NoError(t, m.Set(1, 2, 4.5))
	assert.Equal(t, 4.5, MustAt(t, m, 1, 2))

	_, err := m.At(2, 0)
	require.ErrorIs(t, err, matrix.ErrOutOfRange)
	require.ErrorIs(t, m.Set(0, 3, 1), matrix.ErrOutOfRange)
	require.ErrorIs(t, m.Set(0, 0, math.NaN()), matrix.ErrNaNInf)
	require.ErrorIs(t, m.Set(0, 0, math.Inf(1)), matrix.ErrNaNInf)

	lax, err := matrix.NewDense(1, 1, matrix.WithNoValidateNaNInf())
	require.NoError(t, err)
	require.NoError(t, lax.Set(0, 0, math.Inf(-1)))
	assert.False(t, lax.IsFinite())
}

func TestDense_ValuePanicsOutOfRange(t *testing.T) {
	m := MustDense(t, 2, 2)
	assert.Panics(t, func() { _ = m.Value(2, 0) })
	assert.NotPanics(t, func() { _ = m.Value(1, 1) })
}

func TestNewFromRows(t *testing.T) {
	m := MustRows(t, [][]float64{{1, 2}, {3, 4}})
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, m.ToRows())
	assert.Equal(t, []float64{1, 4}, m.Diag())
	assert.Equal(t, []float64{1, 2, 3, 4}, m.Flat())

	_, err := matrix.NewFromRows([][]float64{{1, 2}, {3}})
	require.ErrorIs(t, err, matrix.ErrBadShape)
	_, err = matrix.NewFromRows(nil)
	require.ErrorIs(t, err, matrix.ErrBadShape)
	_, err = matrix.NewFromRows([][]float64{{math.NaN()}})
	require.ErrorIs(t, err, matrix.ErrNaNInf)
}

func TestCloneIsDeep(t *testing.T) {
	m := MustRows(t, [][]float64{{1, 2}, {3, 4}})
	c := m.Clone()
	require.NoError(t, m.Set(0, 0, 9))
	assert.Equal(t, 1.0, MustAt(t, c, 0, 0))
}

func TestInduced(t *testing.T) {
	m := MustRows(t, [][]float64{
		{11, 12, 13},
		{21, 22, 23},
		{31, 32, 33},
	})
	sub, err := m.Induced([]int{0, 2}, []int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{11, 13}, {31, 33}}, sub.ToRows())

	perm, err := m.Induced([]int{2, 0}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{32}, {12}}, perm.ToRows())

	_, err = m.Induced([]int{3}, []int{0})
	require.ErrorIs(t, err, matrix.ErrOutOfRange)
	_, err = m.Induced(nil, []int{0})
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)
}

func TestStringOutput(t *testing.T) {
	m := MustRows(t, [][]float64{{1, 2}, {3, 4}})
	require.Equal(t, "[1, 2]\n[3, 4]\n", m.String())
}

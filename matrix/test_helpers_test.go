// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers.
//
// Purpose:
//   • Provide small, deterministic fixtures and utilities for kernels.
//   • Keep all data finite and well-formed to avoid numeric-policy interference.

package matrix_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tasreso/matrix"
)

// hide wraps a Matrix to mask its concrete type from type assertions, forcing
// the generic At/Set paths in validators and AllClose.
type hide struct{ matrix.Matrix }

// MustDense allocates an r×c *Dense or fails the test.
func MustDense(t testing.TB, r, c int) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDense(r, c)
	require.NoError(t, err)

	return m
}

// MustRows builds a *Dense from a literal or fails the test.
func MustRows(t testing.TB, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewFromRows(rows)
	require.NoError(t, err)

	return m
}

// MustAt reads (i,j) or fails the test.
func MustAt(t testing.TB, m matrix.Matrix, i, j int) float64 {
	t.Helper()
	v, err := m.At(i, j)
	require.NoError(t, err)

	return v
}

// CompareClose asserts AllClose(a, b, rtol, atol) with a readable dump.
func CompareClose(t testing.TB, a, b *matrix.Dense, rtol, atol float64) {
	t.Helper()
	ok, err := matrix.AllClose(a, b, rtol, atol)
	require.NoError(t, err)
	require.Truef(t, ok, "matrices differ:\n%s\nvs\n%s", a, b)
}

// RandSPD returns a random symmetric positive-definite n×n matrix
// A = XᵀX + n·I built from a seeded PCG source.
func RandSPD(t testing.TB, n int, seed uint64) *matrix.Dense {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	x := MustDense(t, n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			require.NoError(t, x.Set(i, j, rng.Float64()*2-1))
		}
	}
	xt, err := matrix.Transpose(x)
	require.NoError(t, err)
	a, err := matrix.Mul(xt, x)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, a.Set(i, i, MustAt(t, a, i, i)+float64(n)))
	}

	return a
}

// RandDense fills an r×c matrix with uniform values in [-1, 1).
func RandDense(t testing.TB, r, c int, seed uint64) *matrix.Dense {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 7))
	m := MustDense(t, r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.NoError(t, m.Set(i, j, rng.Float64()*2-1))
		}
	}

	return m
}

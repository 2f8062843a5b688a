// SPDX-License-Identifier: MIT

// Package matrix is the small dense linear-algebra core used by the
// resolution solvers and the quadratic-form engine.
//
// The package provides:
//
//   - Dense, a row-major float64 matrix with bounds-checked accessors.
//   - Kernels: Add, Sub, Mul, Transpose, Scale, MatVec, Congruence (Nᵀ·M·N).
//   - Factorizations: Inverse (Gauss-Jordan with partial pivoting), Det (PLU),
//     Eigen (cyclic Jacobi for symmetric matrices).
//   - Validators shared by every kernel and by callers in other packages.
//
// Matrices handled here are small (4..13 rows); every routine favors clarity
// and determinism over blocked performance. No routine keeps global state, so
// all of them are safe to call concurrently on distinct operands.
package matrix

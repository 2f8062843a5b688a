// SPDX-License-Identifier: MIT

// Package matrix: functional configuration of the numeric policy.
//
// Design goals:
//   - Deterministic behavior: no global state, no implicit randomness.
//   - Safe by construction: panic only on invalid parameters (programmer error).
//   - Options fields are unexported; public APIs consume ...Option.

package matrix

import "math"

const (
	// DefaultEpsilon is the relative tolerance used by symmetry checks and the
	// Jacobi convergence test.
	DefaultEpsilon = 1e-12

	// DefaultPivotTolerance is the relative pivot threshold below which a
	// matrix is reported singular by Inverse.
	DefaultPivotTolerance = 1e-14

	// DefaultMaxSweeps bounds the Jacobi iteration (full sweeps over the upper
	// triangle).
	DefaultMaxSweeps = 100

	// DefaultValidateNaNInf controls rejection of NaN/Inf in Set.
	DefaultValidateNaNInf = true
)

// Option mutates Options during gatherOptions.
type Option func(*Options)

// Options is the resolved numeric policy.
type Options struct {
	eps            float64
	pivotTol       float64
	maxSweeps      int
	validateNaNInf bool
}

// WithEpsilon sets the relative tolerance for symmetry and convergence tests.
// Panics when eps is negative, NaN or Inf.
func WithEpsilon(eps float64) Option {
	if eps < 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
		panic("matrix: WithEpsilon requires a finite eps >= 0")
	}

	return func(o *Options) { o.eps = eps }
}

// WithPivotTolerance sets the relative singularity threshold used by Inverse.
func WithPivotTolerance(tol float64) Option {
	if tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		panic("matrix: WithPivotTolerance requires a finite tol >= 0")
	}

	return func(o *Options) { o.pivotTol = tol }
}

// WithMaxSweeps bounds the number of Jacobi sweeps.
func WithMaxSweeps(n int) Option {
	if n <= 0 {
		panic("matrix: WithMaxSweeps requires n > 0")
	}

	return func(o *Options) { o.maxSweeps = n }
}

// WithNoValidateNaNInf lets Set accept NaN/Inf (used when a caller wants to
// carry non-finite intermediates to a later, explicit finiteness check).
func WithNoValidateNaNInf() Option {
	return func(o *Options) { o.validateNaNInf = false }
}

func defaultOptions() Options {
	return Options{
		eps:            DefaultEpsilon,
		pivotTol:       DefaultPivotTolerance,
		maxSweeps:      DefaultMaxSweeps,
		validateNaNInf: DefaultValidateNaNInf,
	}
}

// gatherOptions applies user options over the defaults in order.
func gatherOptions(user ...Option) Options {
	o := defaultOptions()
	for _, fn := range user {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}

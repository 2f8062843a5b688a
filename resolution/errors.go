// SPDX-License-Identifier: MIT

package resolution

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/tasreso/instrument"
)

var (
	// ErrSingularMatrix indicates that a required matrix inversion failed.
	// The concrete error is a *MatrixError naming the intermediate matrix.
	ErrSingularMatrix = errors.New("resolution: singular matrix")

	// ErrInvalidResult indicates non-finite entries, or a matrix that is not
	// symmetric positive definite, after an otherwise successful computation.
	ErrInvalidResult = errors.New("resolution: invalid result")

	// ErrGeometry is instrument.ErrGeometry, re-exported so the whole failure
	// taxonomy can be matched from this package.
	ErrGeometry = instrument.ErrGeometry

	// ErrConfiguration is instrument.ErrConfiguration, re-exported.
	ErrConfiguration = instrument.ErrConfiguration
)

// MatrixError reports a failed inversion of a named intermediate matrix.
// It matches ErrSingularMatrix and, when set, the underlying Err.
type MatrixError struct {
	Name string
	Err  error
}

// Error returns "Matrix <name> cannot be inverted".
func (e *MatrixError) Error() string {
	return fmt.Sprintf("Matrix %s cannot be inverted", e.Name)
}

// Unwrap exposes ErrSingularMatrix and the cause.
func (e *MatrixError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSingularMatrix}
	}

	return []error{ErrSingularMatrix, e.Err}
}

func invalidResultf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidResult, fmt.Sprintf(format, args...))
}

// SPDX-License-Identifier: MIT

package matrix

// Matrix is the read/write surface shared by validators and comparison
// helpers. *Dense is the only implementation in this module; callers outside
// the package may wrap it (tests do) to exercise the generic paths.
type Matrix interface {
	// Rows returns the number of rows in the matrix.
	Rows() int

	// Cols returns the number of columns in the matrix.
	Cols() int

	// At retrieves the element at position (i, j).
	// Returns ErrOutOfRange if the indices are invalid.
	At(i, j int) (float64, error)

	// Set assigns the value v at position (i, j).
	// Returns ErrOutOfRange if the indices are invalid.
	Set(i, j int, v float64) error
}

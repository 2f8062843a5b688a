// SPDX-License-Identifier: MIT

package instrument

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGeometry indicates a scattering position that cannot be reached:
	// Bragg angles beyond ±90°, an open scattering triangle, or a momentum
	// transfer outside the scattering plane.
	ErrGeometry = errors.New("geometry error")

	// ErrConfiguration indicates parameters missing or invalid for the
	// selected algorithm variant.
	ErrConfiguration = errors.New("configuration error")
)

// ConfigError lists every problem found by Config.Validate. It matches
// ErrConfiguration under errors.Is.
type ConfigError struct {
	Algorithm Algorithm
	Problems  []string
}

// Error renders the problems in field order.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Algorithm, strings.Join(e.Problems, "; "))
}

// Unwrap makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigError) Unwrap() error { return ErrConfiguration }

func geometryErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGeometry, fmt.Sprintf(format, args...))
}

// SPDX-License-Identifier: MIT

package instrument

import "math"

const (
	// KSQ2E converts k² (Å⁻²) to neutron energy (meV): E = KSQ2E·k².
	KSQ2E = 2.0721247

	// SigmaToFWHM is 2·√(2·ln2), the Gaussian FWHM/σ ratio.
	SigmaToFWHM = 2.3548200450309493

	// ArcminToRad converts arc-minutes to radians.
	ArcminToRad = math.Pi / (180 * 60)

	// CmToM converts centimetres to metres.
	CmToM = 0.01
)

// KToEnergy returns the neutron energy (meV) for wavenumber k (Å⁻¹).
func KToEnergy(k float64) float64 { return KSQ2E * k * k }

// EnergyToK returns the wavenumber (Å⁻¹) for a neutron energy e (meV).
// Negative energies return NaN.
func EnergyToK(e float64) float64 { return math.Sqrt(e / KSQ2E) }

// Wavelength returns λ = 2π/k in Å.
func Wavelength(k float64) float64 { return 2 * math.Pi / k }

// SPDX-License-Identifier: MIT

package instrument

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/tasreso/lattice"
)

// DefaultPlaneTolerance is the largest out-of-plane Q component (Å⁻¹)
// accepted by NewPositionFromHKL.
const DefaultPlaneTolerance = 1e-4

// Position is a resolved point of the scattering triangle together with the
// spectrometer angles that realize it.
//
// The momentum frame has x along Q, y in the scattering plane and z up;
// ki = (KiPara, KPerp, 0) and kf = ki - Q = (KfPara, KPerp, 0).
type Position struct {
	Ki, Kf float64 // Å⁻¹
	Q      float64 // Å⁻¹
	E      float64 // meV, E = KSQ2E·(ki² - kf²)

	ThetaM, ThetaA float64 // signed Bragg angles (rad)
	TwoTheta       float64 // signed sample scattering angle (rad)
	ThetaS         float64 // TwoTheta/2

	PhiI, PhiF float64 // angles of ki and kf measured from Q (rad)

	KiPara, KfPara, KPerp float64 // Å⁻¹
	DE                    float64 // (ki² - kf²)/(2Q²)
}

// NewPosition resolves the triangle (ki, kf, Q) on instrument cfg.
//
// Errors (all match ErrGeometry):
//   - non-positive ki, kf or Q;
//   - a Bragg condition π/(d·k) beyond ±1 on either crystal;
//   - a triangle that does not close, |cos 2θ| > 1.
func NewPosition(cfg *Config, ki, kf, q float64) (Position, error) {
	if !(ki > 0) || !(kf > 0) || !(q > 0) {
		return Position{}, geometryErrorf("ki, kf and Q must be > 0 (ki=%g kf=%g Q=%g)", ki, kf, q)
	}
	thm, err := braggAngle(cfg.Mono.D, ki, cfg.Senses.Mono)
	if err != nil {
		return Position{}, fmt.Errorf("monochromator: %w", err)
	}
	tha, err := braggAngle(cfg.Ana.D, kf, cfg.Senses.Ana)
	if err != nil {
		return Position{}, fmt.Errorf("analyser: %w", err)
	}

	c2t := (ki*ki + kf*kf - q*q) / (2 * ki * kf)
	if math.Abs(c2t) > 1 {
		return Position{}, geometryErrorf("scattering triangle not closed (ki=%g kf=%g Q=%g)", ki, kf, q)
	}
	sense := float64(cfg.Senses.Sample)
	tt := sense * math.Acos(c2t)

	de := (ki*ki - kf*kf) / (2 * q * q)
	kipara := q * (0.5 + de)
	kperp := sense * math.Sqrt(math.Max(0, ki*ki-kipara*kipara))

	return Position{
		Ki: ki, Kf: kf, Q: q, E: KSQ2E * (ki*ki - kf*kf),
		ThetaM: thm, ThetaA: tha,
		TwoTheta: tt, ThetaS: tt / 2,
		PhiI:   math.Atan2(kperp, kipara),
		PhiF:   math.Atan2(kperp, kipara-q),
		KiPara: kipara, KfPara: kipara - q, KPerp: kperp,
		DE: de,
	}, nil
}

// NewPositionFixedKf resolves (Q, E) with the final wavenumber held at kf.
func NewPositionFixedKf(cfg *Config, kf, q, e float64) (Position, error) {
	ki2 := kf*kf + e/KSQ2E
	if !(ki2 > 0) {
		return Position{}, geometryErrorf("energy transfer %g meV not reachable with kf=%g", e, kf)
	}

	return NewPosition(cfg, math.Sqrt(ki2), kf, q)
}

// NewPositionFixedKi resolves (Q, E) with the incident wavenumber held at ki.
func NewPositionFixedKi(cfg *Config, ki, q, e float64) (Position, error) {
	kf2 := ki*ki - e/KSQ2E
	if !(kf2 > 0) {
		return Position{}, geometryErrorf("energy transfer %g meV not reachable with ki=%g", e, ki)
	}

	return NewPosition(cfg, ki, math.Sqrt(kf2), q)
}

// FixedK names which wavenumber a scan keeps constant.
type FixedK int

const (
	// FixKf keeps the final wavenumber constant (the common TAS mode).
	FixKf FixedK = iota
	// FixKi keeps the incident wavenumber constant.
	FixKi
)

// String returns "kf" or "ki".
func (f FixedK) String() string {
	if f == FixKi {
		return "ki"
	}

	return "kf"
}

// Resolve dispatches to NewPositionFixedKi or NewPositionFixedKf.
func (f FixedK) Resolve(cfg *Config, k, q, e float64) (Position, error) {
	if f == FixKi {
		return NewPositionFixedKi(cfg, k, q, e)
	}

	return NewPositionFixedKf(cfg, k, q, e)
}

// NewPositionFromHKL places (hkl) through plane and resolves it at energy e
// with the chosen wavenumber fixed. A Q vector leaving the scattering plane
// by more than tol yields ErrGeometry.
func NewPositionFromHKL(cfg *Config, plane *lattice.Plane, hkl [3]float64, e float64, fixed FixedK, k, tol float64) (Position, error) {
	q, err := plane.InPlane(hkl, tol)
	if err != nil {
		if errors.Is(err, lattice.ErrOutOfPlane) {
			return Position{}, fmt.Errorf("%w: %w", ErrGeometry, err)
		}

		return Position{}, err
	}

	return fixed.Resolve(cfg, k, q, e)
}

func braggAngle(d, k float64, sense int) (float64, error) {
	s := math.Pi / (d * k)
	if math.IsNaN(s) || math.Abs(s) > 1 {
		return 0, geometryErrorf("Bragg condition unreachable (d=%g k=%g)", d, k)
	}

	return float64(sense) * math.Asin(s), nil
}

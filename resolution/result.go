// SPDX-License-Identifier: MIT

package resolution

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/tasreso/ellipse"
	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/matrix"
)

// Result is the outcome of one solve.
//
// Matrix is the 4×4 precision form M of R(Δ) ∝ exp(-½·ΔᵀMΔ) in the basis
// (Q_para, Q_perp, Q_up, E) with units Å⁻¹ and meV. When OK is true it is
// finite, symmetric and positive definite; when OK is false Matrix is nil
// and Err holds the reason.
type Result struct {
	Algorithm instrument.Algorithm
	Matrix    *matrix.Dense
	QAvg      [4]float64 // mean position (Q, 0, 0, E) plus any model shift
	Volume    float64    // ∫R d⁴Δ for unit peak, (2π)²/√det M
	R0        float64    // intensity prefactor
	BraggFWHM [4]float64 // 2√(2ln2)/√M_ii

	// Linear and Constant complete the Eckold-Sobolev quadric
	// ΔᵀUΔ + Linear·Δ + Constant about the nominal position; zero for the
	// other models.
	Linear   [4]float64
	Constant float64

	OK  bool
	Err error
}

// Form returns the resolution ellipsoid as a quadratic form centred on QAvg.
func (r Result) Form() (*ellipse.Form, error) {
	if !r.OK {
		return nil, fmt.Errorf("resolution: no matrix: %w", r.Err)
	}

	return ellipse.NewForm(r.Matrix, r.QAvg[:], ellipse.Physical)
}

// Solve evaluates cfg at pos with the model selected by cfg.Algorithm.
//
// Physical failures never panic: they come back as a Result with OK false
// and the same error returned alongside it.
func Solve(cfg *instrument.Config, pos instrument.Position, opts ...Option) (Result, error) {
	if cfg == nil {
		return fail(Result{}, fmt.Errorf("%w: nil config", ErrConfiguration))
	}
	switch cfg.Algorithm {
	case instrument.CooperNathans:
		return CooperNathans(cfg, pos, opts...)
	case instrument.Popovici:
		return Popovici(cfg, pos, opts...)
	case instrument.EckoldSobolev:
		return EckoldSobolev(cfg, pos, opts...)
	}

	return fail(Result{Algorithm: cfg.Algorithm}, fmt.Errorf("%w: unknown algorithm %s", ErrConfiguration, cfg.Algorithm))
}

// prepare validates cfg for alg and pos for the solvers' needs.
func prepare(cfg *instrument.Config, pos instrument.Position, alg instrument.Algorithm) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrConfiguration)
	}
	c := *cfg
	c.Algorithm = alg
	if err := c.Validate(); err != nil {
		return err
	}
	if !(pos.Q > 0) || !(pos.Ki > 0) || !(pos.Kf > 0) {
		return fmt.Errorf("%w: unresolved position (ki=%g kf=%g Q=%g)", ErrGeometry, pos.Ki, pos.Kf, pos.Q)
	}

	return nil
}

func fail(r Result, err error) (Result, error) {
	r.Matrix = nil
	r.OK = false
	r.Err = err

	return r, err
}

// finish checks m and fills the derived quantities of r.
func finish(r Result, m *matrix.Dense, log *slog.Logger) (Result, error) {
	if !m.IsFinite() {
		return fail(r, invalidResultf("non-finite resolution matrix"))
	}
	if err := matrix.ValidateSymmetric(m, 1e-8); err != nil {
		return fail(r, invalidResultf("%v", err))
	}
	m, _ = matrix.Symmetrize(m)
	vals, _, err := matrix.EigenSym(m)
	if err != nil {
		return fail(r, invalidResultf("%v", err))
	}
	for _, v := range vals {
		if !(v > 0) {
			return fail(r, invalidResultf("matrix not positive definite (eigenvalue %g)", v))
		}
	}
	det, err := matrix.Det(m)
	if err != nil || !(det > 0) {
		return fail(r, invalidResultf("non-positive determinant %g", det))
	}

	r.Matrix = m
	r.Volume = 4 * math.Pi * math.Pi / math.Sqrt(det)
	for i := range r.BraggFWHM {
		r.BraggFWHM[i] = instrument.SigmaToFWHM / math.Sqrt(m.Value(i, i))
	}
	if math.IsNaN(r.R0) || math.IsInf(r.R0, 0) {
		return fail(r, invalidResultf("non-finite prefactor"))
	}
	r.OK = true
	r.Err = nil

	log.Debug("resolution solved",
		slog.String("algorithm", r.Algorithm.String()),
		slog.Float64("volume", r.Volume),
		slog.Float64("r0", r.R0),
		slog.Any("bragg_fwhm", r.BraggFWHM),
	)

	return r, nil
}

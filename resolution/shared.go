// SPDX-License-Identifier: MIT

package resolution

import (
	"math"

	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/matrix"
)

// zeros allocates an r×c matrix; the sizes used here are always valid.
func zeros(r, c int) *matrix.Dense {
	m, _ := matrix.NewDense(r, c)

	return m
}

// put writes v at (i, j) of m. Callers only pass finite values.
func put(m *matrix.Dense, i, j int, v float64) { _ = m.Set(i, j, v) }

// invert inverts m or reports it by name.
func invert(name string, m *matrix.Dense) (*matrix.Dense, error) {
	inv, err := matrix.Inverse(m)
	if err != nil {
		return nil, &MatrixError{Name: name, Err: err}
	}

	return inv, nil
}

// collimatorMatrix returns G = diag(1/α²) over [α0 α1 β0 β1 α2 α3 β2 β3].
func collimatorMatrix(cfg *instrument.Config, ki float64) *matrix.Dense {
	div := cfg.Divergences(ki)
	g := zeros(8, 8)
	for i, a := range div {
		put(g, i, i, 1/(a*a))
	}

	return g
}

// mosaicMatrix returns F = diag(1/η²) over [η_m, η_m,v, η_a, η_a,v]. The
// vertical crystal mosaics fall back to the horizontal ones when unset.
// A zero mosaic makes F singular.
func mosaicMatrix(cfg *instrument.Config) (*matrix.Dense, error) {
	etas := [4]float64{
		cfg.Mono.Mosaic, vertical(cfg.Mono.MosaicV, cfg.Mono.Mosaic),
		cfg.Ana.Mosaic, vertical(cfg.Ana.MosaicV, cfg.Ana.Mosaic),
	}
	f := zeros(4, 4)
	for i, e := range etas {
		if !(e > 0) {
			return nil, &MatrixError{Name: "F", Err: matrix.ErrSingular}
		}
		put(f, i, i, 1/(e*e))
	}

	return f, nil
}

func vertical(v, h float64) float64 {
	if v > 0 {
		return v
	}

	return h
}

// angleMatrices returns the 6×8 map A from divergences to arm wavevector
// deviations (Δk_par, Δk_perp, Δk_up per arm) and the 4×8 map C from
// divergences to the crystal mosaic angles.
func angleMatrices(pos instrument.Position) (a, c *matrix.Dense) {
	ki, kf := pos.Ki, pos.Kf
	a = zeros(6, 8)
	put(a, 0, 0, ki/(2*math.Tan(pos.ThetaM)))
	put(a, 0, 1, -ki/(2*math.Tan(pos.ThetaM)))
	put(a, 1, 1, ki)
	put(a, 2, 3, ki)
	put(a, 3, 4, kf/(2*math.Tan(pos.ThetaA)))
	put(a, 3, 5, -kf/(2*math.Tan(pos.ThetaA)))
	put(a, 4, 4, kf)
	put(a, 5, 6, kf)

	c = zeros(4, 8)
	put(c, 0, 0, 0.5)
	put(c, 0, 1, 0.5)
	put(c, 1, 2, 1/(2*math.Sin(pos.ThetaM)))
	put(c, 1, 3, -1/(2*math.Sin(pos.ThetaM)))
	put(c, 2, 4, 0.5)
	put(c, 2, 5, 0.5)
	put(c, 3, 6, 1/(2*math.Sin(pos.ThetaA)))
	put(c, 3, 7, -1/(2*math.Sin(pos.ThetaA)))

	return a, c
}

// qeMatrix returns the 4×6 map B from arm wavevector deviations to
// (Q_para, Q_perp, Q_up, E).
func qeMatrix(pos instrument.Position) *matrix.Dense {
	ci, si := math.Cos(pos.PhiI), math.Sin(pos.PhiI)
	cf, sf := math.Cos(pos.PhiF), math.Sin(pos.PhiF)
	b := zeros(4, 6)
	put(b, 0, 0, ci)
	put(b, 0, 1, -si)
	put(b, 0, 3, -cf)
	put(b, 0, 4, sf)
	put(b, 1, 0, si)
	put(b, 1, 1, ci)
	put(b, 1, 3, -sf)
	put(b, 1, 4, -cf)
	put(b, 2, 2, 1)
	put(b, 2, 5, -1)
	put(b, 3, 0, 2*instrument.KSQ2E*pos.Ki)
	put(b, 3, 3, -2*instrument.KSQ2E*pos.Kf)

	return b
}

// prefactor returns the Chesser-Axe style R0 shared by the Cooper-Nathans
// and Popovici models, Rm·Ra·ki³·kf³·|cotθm·cotθa|·√(det F / det(G+CᵀFC)).
func prefactor(cfg *instrument.Config, pos instrument.Position, f, gcfc *matrix.Dense) float64 {
	detF, _ := matrix.Det(f)
	detH, _ := matrix.Det(gcfc)
	if !(detH > 0) {
		return math.NaN()
	}
	cot := math.Abs(1 / (math.Tan(pos.ThetaM) * math.Tan(pos.ThetaA)))

	return cfg.Mono.Reflectivity * cfg.Ana.Reflectivity *
		math.Pow(pos.Ki, 3) * math.Pow(pos.Kf, 3) * cot *
		math.Sqrt(detF/detH)
}

// mosaicBroadened adds the sample mosaic to the FWHM-unit covariance cov:
// Q²η² on Q_perp and Q²η_v² on Q_up. It returns the broadened covariance and
// det(cov)/det(broadened), the factor by which the peak height drops
// squared.
func mosaicBroadened(cov *matrix.Dense, q, eta, etaV float64) (*matrix.Dense, float64) {
	out := cov.Clone()
	put(out, 1, 1, out.Value(1, 1)+q*q*eta*eta)
	put(out, 2, 2, out.Value(2, 2)+q*q*etaV*etaV)
	d0, _ := matrix.Det(cov)
	d1, _ := matrix.Det(out)
	if !(d1 > 0) {
		return out, math.NaN()
	}

	return out, d0 / d1
}

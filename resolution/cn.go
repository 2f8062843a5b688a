// SPDX-License-Identifier: MIT

package resolution

import (
	"log/slog"
	"math"

	"github.com/katalvlaran/tasreso/ellipse"
	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/matrix"
)

// sixCoords is the solver basis before the two auxiliary coordinates are
// integrated out.
var sixCoords = []ellipse.Coord{
	ellipse.QPara, ellipse.QPerp, ellipse.QUp, ellipse.E, ellipse.Aux1, ellipse.Aux2,
}

// CooperNathans solves the point-component Gaussian model.
//
// Steps:
//  1. H = G + CᵀFC is the precision of the eight collimator divergences.
//  2. The precision of the six arm wavevector deviations is (A·H⁻¹·Aᵀ)⁻¹.
//  3. The 6×6 transform U = [B; e_ki,par; e_ki,up] maps arm deviations to
//     (Q_para, Q_perp, Q_up, E, aux1, aux2); with N = U⁻¹ the form becomes
//     Nᵀ·M·N and the auxiliary coordinates are integrated out.
//  4. The sample mosaic broadens Q_perp by the rank-1 update
//     M - v·(Me)(Me)ᵀ/(1 + v·eᵀMe) with v = Q²η_s².
//  5. The FWHM-unit form is scaled by 8·ln2.
//
// Errors: ErrConfiguration, ErrGeometry, *MatrixError (a zero crystal mosaic
// makes F singular, a backscattering geometry the transformation matrix),
// ErrInvalidResult.
func CooperNathans(cfg *instrument.Config, pos instrument.Position, opts ...Option) (Result, error) {
	o := gatherOptions(opts...)
	res := Result{Algorithm: instrument.CooperNathans, QAvg: [4]float64{pos.Q, 0, 0, pos.E}}
	if err := prepare(cfg, pos, instrument.CooperNathans); err != nil {
		return fail(res, err)
	}
	log := o.Logger.With(slog.String("algorithm", res.Algorithm.String()))

	g := collimatorMatrix(cfg, pos.Ki)
	f, err := mosaicMatrix(cfg)
	if err != nil {
		return fail(res, err)
	}
	a, c := angleMatrices(pos)

	cfc, _ := matrix.Congruence(c, f)
	h, _ := matrix.Add(g, cfc)
	hinv, err := invert("G+CᵀFC", h)
	if err != nil {
		return fail(res, err)
	}
	at, _ := matrix.Transpose(a)
	covK, _ := matrix.Congruence(at, hinv)
	mK, err := invert("A(G+CᵀFC)⁻¹Aᵀ", covK)
	if err != nil {
		return fail(res, err)
	}

	n, err := invert("transformation matrix", transformCN(pos))
	if err != nil {
		return fail(res, err)
	}
	m6, err := matrix.Congruence(n, mK)
	if err != nil {
		return fail(res, invalidResultf("%v", err))
	}
	form, err := ellipse.NewForm(m6, nil, sixCoords)
	if err != nil {
		return fail(res, invalidResultf("%v", err))
	}
	if form, err = form.Integrate(ellipse.Aux1, ellipse.Aux2); err != nil {
		return fail(res, invalidResultf("%v", err))
	}
	m4 := form.Matrix()
	log.Debug("auxiliary coordinates integrated", slog.String("matrix", m4.String()))

	res.R0 = prefactor(cfg, pos, f, h)
	if v := pos.Q * pos.Q * cfg.Sample.Mosaic * cfg.Sample.Mosaic; v > 0 {
		den := shermanMorrison(m4, 1, v)
		res.R0 /= math.Sqrt(den)
	}
	m4, _ = matrix.Scale(m4, instrument.SigmaToFWHM*instrument.SigmaToFWHM)

	return finish(res, m4, log)
}

// transformCN stacks B with unit rows selecting Δki_par and Δki_up.
func transformCN(pos instrument.Position) *matrix.Dense {
	b := qeMatrix(pos)
	u := zeros(6, 6)
	for i := 0; i < 4; i++ {
		for j := 0; j < 6; j++ {
			put(u, i, j, b.Value(i, j))
		}
	}
	put(u, 4, 0, 1)
	put(u, 5, 2, 1)

	return u
}

// shermanMorrison replaces the precision m in place by the precision of the
// covariance m⁻¹ + v·e_k·e_kᵀ and returns 1 + v·m_kk.
func shermanMorrison(m *matrix.Dense, k int, v float64) float64 {
	n := m.Rows()
	col := make([]float64, n)
	for i := range col {
		col[i] = m.Value(i, k)
	}
	den := 1 + v*col[k]
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			put(m, i, j, m.Value(i, j)-v*col[i]*col[j]/den)
		}
	}

	return den
}

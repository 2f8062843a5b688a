// SPDX-License-Identifier: MIT

package resolution

import (
	"log/slog"
	"math"

	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/matrix"
)

// Component coordinates of the Popovici model: x along the beam into the
// component, y across it in the scattering plane, z up.
const (
	popSrcY = iota
	popSrcZ
	popMonoX
	popMonoY
	popMonoZ
	popSampleX
	popSampleY
	popSampleZ
	popAnaX
	popAnaY
	popAnaZ
	popDetY
	popDetZ
	popDims
)

// Popovici solves the finite-size model with crystal curvature.
//
// With S the precision of the 13 component coordinates, T their map onto the
// four crystal mosaic angles and D their map onto the eight ray angles:
//
//	M0 = S + TᵀFT
//	M1 = D·M0⁻¹·Dᵀ
//	M2 = M1⁻¹ + G
//	MI = B·A·M2⁻¹·Aᵀ·Bᵀ + diag(0, Q²η_s², Q²η_s,v², 0)
//	M  = 8·ln2 · MI⁻¹
//
// Every failed inversion is reported as a *MatrixError naming M0, M1, M2 or
// MI.
func Popovici(cfg *instrument.Config, pos instrument.Position, opts ...Option) (Result, error) {
	o := gatherOptions(opts...)
	res := Result{Algorithm: instrument.Popovici, QAvg: [4]float64{pos.Q, 0, 0, pos.E}}
	if err := prepare(cfg, pos, instrument.Popovici); err != nil {
		return fail(res, err)
	}
	log := o.Logger.With(slog.String("algorithm", res.Algorithm.String()))

	g := collimatorMatrix(cfg, pos.Ki)
	f, err := mosaicMatrix(cfg)
	if err != nil {
		return fail(res, err)
	}
	a, c := angleMatrices(pos)
	b := qeMatrix(pos)
	s := sizeMatrix(cfg)
	t, d := propagationMatrices(cfg, pos)

	tft, _ := matrix.Congruence(t, f)
	m0, _ := matrix.Add(s, tft)
	m0inv, err := invert("M0", m0)
	if err != nil {
		return fail(res, err)
	}
	dt, _ := matrix.Transpose(d)
	m1, _ := matrix.Congruence(dt, m0inv)
	m1inv, err := invert("M1", m1)
	if err != nil {
		return fail(res, err)
	}
	m2, _ := matrix.Add(m1inv, g)
	m2inv, err := invert("M2", m2)
	if err != nil {
		return fail(res, err)
	}
	ba, _ := matrix.Mul(b, a)
	bat, _ := matrix.Transpose(ba)
	mi, _ := matrix.Congruence(bat, m2inv)

	eta := cfg.Sample.Mosaic
	mi, drop := mosaicBroadened(mi, pos.Q, eta, vertical(cfg.Sample.MosaicV, eta))
	m, err := invert("MI", mi)
	if err != nil {
		return fail(res, err)
	}
	log.Debug("covariance reduced", slog.String("MI", mi.String()))

	cfc, _ := matrix.Congruence(c, f)
	h, _ := matrix.Add(g, cfc)
	res.R0 = prefactor(cfg, pos, f, h) * math.Sqrt(drop)
	m, _ = matrix.Scale(m, instrument.SigmaToFWHM*instrument.SigmaToFWHM)

	return finish(res, m, log)
}

// sizeMatrix returns S = diag(1/(8·ln2·σ²)) of the component coordinates,
// i.e. each size expressed as an equivalent FWHM.
func sizeMatrix(cfg *instrument.Config) *matrix.Dense {
	var v [popDims]float64
	v[popSrcY], v[popSrcZ] = slabVariances(cfg.Source)
	v[popMonoX] = instrument.Rectangular.Variance(cfg.Mono.Depth)
	v[popMonoY] = instrument.Rectangular.Variance(cfg.Mono.Width)
	v[popMonoZ] = instrument.Rectangular.Variance(cfg.Mono.Height)
	sm := cfg.Sample
	if sm.Shape == instrument.Circular {
		v[popSampleX] = instrument.Circular.Variance(sm.Width)
		v[popSampleY] = v[popSampleX]
	} else {
		v[popSampleX] = instrument.Rectangular.Variance(sm.Depth)
		v[popSampleY] = instrument.Rectangular.Variance(sm.Width)
	}
	v[popSampleZ] = instrument.Rectangular.Variance(sm.Height)
	v[popAnaX] = instrument.Rectangular.Variance(cfg.Ana.Depth)
	v[popAnaY] = instrument.Rectangular.Variance(cfg.Ana.Width)
	v[popAnaZ] = instrument.Rectangular.Variance(cfg.Ana.Height)
	v[popDetY], v[popDetZ] = slabVariances(cfg.Detector)

	s := zeros(popDims, popDims)
	k := instrument.SigmaToFWHM * instrument.SigmaToFWHM
	for i, vi := range v {
		put(s, i, i, 1/(k*vi))
	}

	return s
}

// slabVariances returns the (width, height) variances of a source or
// detector; a circular slab has diameter Width in both directions.
func slabVariances(s instrument.Slab) (w, h float64) {
	if s.Shape == instrument.Circular {
		v := instrument.Circular.Variance(s.Width)

		return v, v
	}

	return instrument.Rectangular.Variance(s.Width), instrument.Rectangular.Variance(s.Height)
}

// propagationMatrices returns T (4×13, component coordinates to mosaic
// angles, curvature aware) and D (8×13, component coordinates to the eight
// ray angles).
//
// Curvatures carry the sign of sinθ so that the Rowland-optimal radius
// cancels the flat-crystal term for either scattering sense.
func propagationMatrices(cfg *instrument.Config, pos instrument.Position) (t, d *matrix.Dense) {
	l0, l1 := cfg.Dist.SourceMono, cfg.Dist.MonoSample
	l2, l3 := cfg.Dist.SampleAna, cfg.Dist.AnaDetector
	sm, cm := math.Sin(pos.ThetaM), math.Cos(pos.ThetaM)
	sa, ca := math.Sin(pos.ThetaA), math.Cos(pos.ThetaA)
	ss, cs := math.Sin(pos.ThetaS), math.Cos(pos.ThetaS)

	mh, mv := cfg.Mono.Curvatures(pos.ThetaM, l0, l1)
	ah, av := cfg.Ana.Curvatures(pos.ThetaA, l3, l2)
	mh, mv = mh*sign(sm), mv*sign(sm)
	ah, av = ah*sign(sa), av*sign(sa)

	t = zeros(4, popDims)
	put(t, 0, popSrcY, -1/(2*l0))
	put(t, 0, popMonoX, cm*(1/l1-1/l0)/2)
	put(t, 0, popMonoY, sm*(1/l0+1/l1-2*mh/sm)/2)
	put(t, 0, popSampleX, ss/(2*l1))
	put(t, 0, popSampleY, cs/(2*l1))
	put(t, 1, popSrcZ, -1/(2*l0*sm))
	put(t, 1, popMonoZ, (1/l0+1/l1-2*sm*mv)/(2*sm))
	put(t, 1, popSampleZ, -1/(2*l1*sm))
	put(t, 2, popSampleX, ss/(2*l2))
	put(t, 2, popSampleY, -cs/(2*l2))
	put(t, 2, popAnaX, ca*(1/l3-1/l2)/2)
	put(t, 2, popAnaY, sa*(1/l2+1/l3-2*ah/sa)/2)
	put(t, 2, popDetY, 1/(2*l3))
	put(t, 3, popSampleZ, -1/(2*l2*sa))
	put(t, 3, popAnaZ, (1/l2+1/l3-2*sa*av)/(2*sa))
	put(t, 3, popDetZ, -1/(2*l3*sa))

	d = zeros(8, popDims)
	put(d, 0, popSrcY, -1/l0)
	put(d, 0, popMonoX, -cm/l0)
	put(d, 0, popMonoY, sm/l0)
	put(d, 1, popMonoX, cm/l1)
	put(d, 1, popMonoY, sm/l1)
	put(d, 1, popSampleX, ss/l1)
	put(d, 1, popSampleY, cs/l1)
	put(d, 2, popSrcZ, -1/l0)
	put(d, 2, popMonoZ, 1/l0)
	put(d, 3, popMonoZ, -1/l1)
	put(d, 3, popSampleZ, 1/l1)
	put(d, 4, popSampleX, ss/l2)
	put(d, 4, popSampleY, -cs/l2)
	put(d, 4, popAnaX, -ca/l2)
	put(d, 4, popAnaY, sa/l2)
	put(d, 5, popAnaX, ca/l3)
	put(d, 5, popAnaY, sa/l3)
	put(d, 5, popDetY, 1/l3)
	put(d, 6, popSampleZ, -1/l2)
	put(d, 6, popAnaZ, 1/l2)
	put(d, 7, popAnaZ, -1/l3)
	put(d, 7, popDetZ, 1/l3)

	return t, d
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}

	return 1
}

// SPDX-License-Identifier: MIT

package resolution

import (
	"log/slog"
	"math"

	"github.com/katalvlaran/tasreso/ellipse"
	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/matrix"
)

// fwhm2 is the Gaussian FWHM²/σ² ratio, 8·ln2.
const fwhm2 = instrument.SigmaToFWHM * instrument.SigmaToFWHM

// armGeometry describes one arm (monochromator or analyser) seen from the
// sample: a far slab (source or detector), a crystal and two collimators.
type armGeometry struct {
	k, theta float64 // wavenumber and signed Bragg angle
	l0, l1   float64 // slab to crystal, crystal to sample

	preH, postH, preV, postV float64 // collimators far from / near to the sample

	slab    instrument.Slab
	crystal instrument.Crystal
	curvH   float64
	curvV   float64

	posH, posV float64 // sample offset across the arm and up
}

// arm is the quadric xᵀAx + b·x + c of an arm in its local
// (Δk_par, Δk_perp, Δk_up) frame, with the reflectivity integral of the
// vertical divergence already taken.
type arm struct {
	a    *matrix.Dense
	b    [3]float64
	c    float64
	refl float64
}

// quad2 accumulates Gaussian factors exp(-½·(8ln2)·(a·x + c·p)²/F²) over a
// pair of variables, F being a FWHM.
type quad2 struct {
	a [2][2]float64
	b [2]float64
	c float64
}

func (q *quad2) add(a0, a1, c, p, fwhm float64) {
	w := 0.5 * fwhm2 / (fwhm * fwhm)
	a := [2]float64{a0, a1}
	for i := range a {
		for j := range a {
			q.a[i][j] += w * a[i] * a[j]
		}
		q.b[i] += 2 * w * a[i] * c * p
	}
	q.c += w * c * c * p * p
}

// solve builds the arm quadric. Horizontal variables are (Δk/k, Δk_perp/k);
// vertical ones are the ray angle crystal-sample w and slab-crystal ψ, and ψ
// is integrated out.
func (g armGeometry) solve(name string) (arm, error) {
	var (
		tn   = math.Tan(g.theta)
		sn   = math.Sin(g.theta)
		as   = math.Abs(sn)
		mosV = vertical(g.crystal.MosaicV, g.crystal.Mosaic)
	)
	slabW, slabH := slabVariances(g.slab)
	for _, v := range []float64{g.crystal.Mosaic, mosV, slabW, slabH, g.crystal.Width, g.crystal.Height} {
		if !(v > 0) {
			return arm{}, &MatrixError{Name: name, Err: matrix.ErrSingular}
		}
	}
	sizeFWHM := func(variance float64) float64 { return math.Sqrt(fwhm2 * variance) }

	var h quad2
	h.add(2*tn, 1, 0, 0, g.preH)
	h.add(0, 1, 0, 0, g.postH)
	h.add(-2*tn*g.l0, g.l1-g.l0, -1, g.posH, sizeFWHM(slabW))
	h.add(0, -g.l1/sn, 1/sn, g.posH, sizeFWHM(instrument.Rectangular.Variance(g.crystal.Width)))
	h.add(tn, 1-g.l1*g.curvH/as, g.curvH/as, g.posH, g.crystal.Mosaic)

	var v quad2
	v.add(1, 0, 0, 0, g.postV)
	v.add(0, 1, 0, 0, g.preV)
	v.add(-g.l1, -g.l0, 1, g.posV, sizeFWHM(slabH))
	v.add(-g.l1, 0, 1, g.posV, sizeFWHM(instrument.Rectangular.Variance(g.crystal.Height)))
	v.add(1/(2*as)-g.l1*g.curvV, -1/(2*as), g.curvV, g.posV, mosV)

	// integrate ψ
	aww := v.a[0][0] - v.a[0][1]*v.a[0][1]/v.a[1][1]
	bw := v.b[0] - v.b[1]*v.a[0][1]/v.a[1][1]
	dv := v.c - v.b[1]*v.b[1]/(4*v.a[1][1])

	k2 := g.k * g.k
	a := zeros(3, 3)
	put(a, 0, 0, h.a[0][0]/k2)
	put(a, 0, 1, h.a[0][1]/k2)
	put(a, 1, 0, h.a[1][0]/k2)
	put(a, 1, 1, h.a[1][1]/k2)
	put(a, 2, 2, aww/k2)

	return arm{
		a:    a,
		b:    [3]float64{h.b[0] / g.k, h.b[1] / g.k, bw / g.k},
		c:    h.c + dv,
		refl: g.crystal.Reflectivity * math.Sqrt(math.Pi/v.a[1][1]),
	}, nil
}

// rotated expresses the arm quadric in the Q frame; phi is the angle of the
// arm's wavevector from Q.
func (a arm) rotated(phi float64) (*matrix.Dense, [3]float64) {
	c, s := math.Cos(phi), math.Sin(phi)
	d, _ := matrix.NewFromRows([][]float64{
		{c, s, 0},
		{-s, c, 0},
		{0, 0, 1},
	})
	ar, _ := matrix.Congruence(d, a.a)
	bv, _ := matrix.VecMat(a.b[:], d)

	return ar, [3]float64{bv[0], bv[1], bv[2]}
}

// EckoldSobolev solves the arm-by-arm model with vertical mosaics and an
// off-centre sample.
//
// Each arm yields a quadric in its wavevector deviation. Both are rotated into
// the Q frame and stacked into U_k, V_k, W over (Δki, Δkf). The substitution
// z = T·(Δki, Δkf), z = (Q_para, Q_perp, Q_up, E, aux1, aux2), gives
// U = T⁻ᵀU_kT⁻¹ and V = T⁻ᵀV_k; the precision is 2U with mean -½U⁻¹V, and
// aux2 then aux1 are integrated out, each contributing to R0 and to the
// constant term. The sample mosaic is finally added to the Q_perp and Q_up
// variances.
//
// Errors: ErrConfiguration, ErrGeometry, *MatrixError (a zero mosaic or size
// in an arm, T at Q = 0, U), ErrInvalidResult.
func EckoldSobolev(cfg *instrument.Config, pos instrument.Position, opts ...Option) (Result, error) {
	o := gatherOptions(opts...)
	res := Result{Algorithm: instrument.EckoldSobolev, QAvg: [4]float64{pos.Q, 0, 0, pos.E}}
	if err := prepare(cfg, pos, instrument.EckoldSobolev); err != nil {
		return fail(res, err)
	}
	log := o.Logger.With(slog.String("algorithm", res.Algorithm.String()))

	mono, ana, err := eckArms(cfg, pos)
	if err != nil {
		return fail(res, err)
	}
	am, bm := mono.rotated(pos.PhiI)
	aa, ba := ana.rotated(pos.PhiF)

	uk := zeros(6, 6)
	vk := make([]float64, 6)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			put(uk, i, j, am.Value(i, j))
			put(uk, i+3, j+3, aa.Value(i, j))
		}
		vk[i], vk[i+3] = bm[i], ba[i]
	}
	w := mono.c + ana.c

	tinv, err := invert("T", transformEck(pos))
	if err != nil {
		return fail(res, err)
	}
	u6, _ := matrix.Congruence(tinv, uk)
	v6, _ := matrix.VecMat(vk, tinv)
	u6inv, err := invert("U", u6)
	if err != nil {
		return fail(res, err)
	}
	mu, _ := matrix.MatVec(u6inv, v6)
	for i := range mu {
		mu[i] *= -0.5
	}
	p6, _ := matrix.Scale(u6, 2)

	form, err := ellipse.NewForm(p6, mu, sixCoords)
	if err != nil {
		return fail(res, invalidResultf("%v", err))
	}
	refl := mono.refl * ana.refl
	for _, c := range []ellipse.Coord{ellipse.Aux2, ellipse.Aux1} {
		i, _ := form.Index(c)
		p := form.Matrix()
		pmu, _ := matrix.MatVec(p, form.Offset())
		uu, vv := p.Value(i, i)/2, -pmu[i]
		if !(uu > 0) {
			return fail(res, invalidResultf("non-positive %s curvature %g", c, uu))
		}
		w -= vv * vv / (4 * uu)
		refl *= math.Sqrt(math.Pi / uu)
		if form, err = form.Integrate(c); err != nil {
			return fail(res, invalidResultf("%v", err))
		}
	}
	p4 := form.Matrix()
	mu4 := form.Offset()
	res.R0 = refl

	eta := cfg.Sample.Mosaic
	if etaV := vertical(cfg.Sample.MosaicV, eta); eta > 0 || etaV > 0 {
		cov, err := invert("P", p4)
		if err != nil {
			return fail(res, err)
		}
		cov, drop := mosaicBroadened(cov, pos.Q, eta/instrument.SigmaToFWHM, etaV/instrument.SigmaToFWHM)
		if p4, err = invert("P", cov); err != nil {
			return fail(res, err)
		}
		res.R0 *= math.Sqrt(drop)
	}

	lin, _ := matrix.MatVec(p4, mu4)
	for i := range res.QAvg {
		res.QAvg[i] += mu4[i]
		res.Linear[i] = -lin[i]
	}
	res.Constant = w
	log.Debug("arms combined",
		slog.Float64("mono_refl", mono.refl),
		slog.Float64("ana_refl", ana.refl),
		slog.Any("shift", mu4),
	)

	return finish(res, p4, log)
}

// eckArms builds the monochromator and analyser arms. The analyser arm is
// traced backwards from the sample, which mirrors its Bragg angle, its
// in-plane offset and the sense of its vertical angle.
func eckArms(cfg *instrument.Config, pos instrument.Position) (mono, ana arm, err error) {
	div := cfg.Divergences(pos.Ki)
	sp := cfg.Sample.Pos

	mh, mv := cfg.Mono.Curvatures(pos.ThetaM, cfg.Dist.SourceMono, cfg.Dist.MonoSample)
	mono, err = armGeometry{
		k: pos.Ki, theta: pos.ThetaM,
		l0: cfg.Dist.SourceMono, l1: cfg.Dist.MonoSample,
		preH: div[0], postH: div[1], preV: div[2], postV: div[3],
		slab: cfg.Source, crystal: cfg.Mono,
		curvH: mh, curvV: mv,
		posH: sp[1], posV: sp[2],
	}.solve("mono arm")
	if err != nil {
		return arm{}, arm{}, err
	}

	s2, c2 := math.Sin(pos.TwoTheta), math.Cos(pos.TwoTheta)
	acrossKf := -sp[0]*s2 + sp[1]*c2
	ah, av := cfg.Ana.Curvatures(pos.ThetaA, cfg.Dist.AnaDetector, cfg.Dist.SampleAna)
	ana, err = armGeometry{
		k: pos.Kf, theta: -pos.ThetaA,
		l0: cfg.Dist.AnaDetector, l1: cfg.Dist.SampleAna,
		preH: div[5], postH: div[4], preV: div[7], postV: div[6],
		slab: cfg.Detector, crystal: cfg.Ana,
		curvH: ah, curvV: av,
		posH: -acrossKf, posV: sp[2],
	}.solve("ana arm")
	if err != nil {
		return arm{}, arm{}, err
	}
	ana.b[2] = -ana.b[2]

	return mono, ana, nil
}

// transformEck maps (Δki, Δkf) in the Q frame to
// (Q_para, Q_perp, Q_up, E, aux1, aux2). It is singular only at Q = 0.
func transformEck(pos instrument.Position) *matrix.Dense {
	t, _ := matrix.NewIdentity(6)
	k2 := 2 * instrument.KSQ2E
	put(t, 0, 3, -1)
	put(t, 1, 4, -1)
	put(t, 2, 5, -1)
	put(t, 3, 0, k2*pos.KiPara)
	put(t, 3, 1, k2*pos.KPerp)
	put(t, 3, 3, -k2*pos.KfPara)
	put(t, 3, 4, -k2*pos.KPerp)
	put(t, 4, 1, 0.5-pos.DE)
	put(t, 4, 4, 0.5+pos.DE)
	put(t, 5, 2, 0.5-pos.DE)
	put(t, 5, 5, 0.5+pos.DE)

	return t
}

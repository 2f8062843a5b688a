// SPDX-License-Identifier: MIT

package instrument_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/lattice"
)

func defaultConfig(t *testing.T) instrument.Config {
	t.Helper()
	f := instrument.DefaultFile()
	cfg, err := f.Config()
	require.NoError(t, err)

	return cfg
}

func TestEnergyConversions(t *testing.T) {
	k := 2.662
	e := instrument.KToEnergy(k)
	assert.InDelta(t, 14.68, e, 0.01)
	assert.InDelta(t, k, instrument.EnergyToK(e), 1e-12)
	assert.InDelta(t, 2*math.Sqrt(2*math.Ln2), instrument.SigmaToFWHM, 1e-15)
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]instrument.Algorithm{
		"cn": instrument.CooperNathans, "Popovici": instrument.Popovici, " eck ": instrument.EckoldSobolev,
	} {
		got, err := instrument.ParseAlgorithm(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NotEmpty(t, got.String())
	}
	_, err := instrument.ParseAlgorithm("violini")
	require.ErrorIs(t, err, instrument.ErrConfiguration)
}

func TestNewPosition_Elastic(t *testing.T) {
	cfg := defaultConfig(t)
	k := 2.662
	pos, err := instrument.NewPosition(&cfg, k, k, 1.5)
	require.NoError(t, err)

	assert.InDelta(t, 0, pos.E, 1e-12)
	assert.InDelta(t, 0, pos.DE, 1e-12)
	assert.InDelta(t, 0.75, pos.KiPara, 1e-12)
	assert.InDelta(t, -0.75, pos.KfPara, 1e-12)
	assert.Greater(t, pos.KPerp, 0.0)
	assert.InDelta(t, -math.Asin(math.Pi/(3.355*k)), pos.ThetaM, 1e-12)
	assert.InDelta(t, 2*math.Asin(1.5/(2*k)), pos.TwoTheta, 1e-12)
	assert.InDelta(t, pos.TwoTheta, pos.PhiF-pos.PhiI, 1e-12)

	// ki and kf close the triangle: ki - kf = Q along x
	assert.InDelta(t, k, math.Hypot(pos.KiPara, pos.KPerp), 1e-12)
	assert.InDelta(t, k, math.Hypot(pos.KfPara, pos.KPerp), 1e-12)
}

func TestNewPosition_SampleSenseMirrors(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Senses.Sample = -1
	pos, err := instrument.NewPosition(&cfg, 2.662, 2.662, 1.5)
	require.NoError(t, err)
	assert.Less(t, pos.KPerp, 0.0)
	assert.Less(t, pos.TwoTheta, 0.0)
	assert.InDelta(t, pos.TwoTheta, pos.PhiF-pos.PhiI, 1e-12)
}

func TestNewPosition_GeometryErrors(t *testing.T) {
	cfg := defaultConfig(t)
	cases := map[string]struct{ ki, kf, q float64 }{
		"bragg unreachable": {0.5, 0.5, 0.2},
		"open triangle":     {2.662, 2.662, 6},
		"zero Q":            {2.662, 2.662, 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := instrument.NewPosition(&cfg, tc.ki, tc.kf, tc.q)
			require.ErrorIs(t, err, instrument.ErrGeometry)
		})
	}
}

func TestFixedKModes(t *testing.T) {
	cfg := defaultConfig(t)
	pos, err := instrument.FixKf.Resolve(&cfg, 2.662, 2, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5, pos.E, 1e-9)
	assert.InDelta(t, 2.662, pos.Kf, 1e-12)

	pos, err = instrument.FixKi.Resolve(&cfg, 2.662, 2, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5, pos.E, 1e-9)
	assert.InDelta(t, 2.662, pos.Ki, 1e-12)

	_, err = instrument.FixKi.Resolve(&cfg, 2.662, 2, 50)
	require.ErrorIs(t, err, instrument.ErrGeometry)
}

func TestNewPositionFromHKL(t *testing.T) {
	cfg := defaultConfig(t)
	cell := lattice.Cell{A: 5, B: 5, C: 5, Alpha: math.Pi / 2, Beta: math.Pi / 2, Gamma: math.Pi / 2}
	plane, err := lattice.NewPlane(cell, [3]float64{1, 0, 0}, [3]float64{0, 1, 0})
	require.NoError(t, err)

	pos, err := instrument.NewPositionFromHKL(&cfg, plane, [3]float64{1, 0, 0}, 0, instrument.FixKf, 2.662, instrument.DefaultPlaneTolerance)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Pi/5, pos.Q, 1e-12)

	_, err = instrument.NewPositionFromHKL(&cfg, plane, [3]float64{1, 0, 0.1}, 0, instrument.FixKf, 2.662, instrument.DefaultPlaneTolerance)
	require.ErrorIs(t, err, instrument.ErrGeometry)
	require.ErrorIs(t, err, lattice.ErrOutOfPlane)
}

func TestConfigValidate_PerAlgorithm(t *testing.T) {
	cfg := defaultConfig(t)
	require.NoError(t, cfg.Validate())

	// Cooper-Nathans ignores sizes entirely.
	cfg.Source = instrument.Slab{}
	require.NoError(t, cfg.Validate())

	cfg.Algorithm = instrument.Popovici
	err := cfg.Validate()
	require.ErrorIs(t, err, instrument.ErrConfiguration)
	var ce *instrument.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Problems, "source.width must be > 0")

	cfg = defaultConfig(t)
	cfg.Senses.Ana = 0
	cfg.Collimation.H[2] = 0
	err = cfg.Validate()
	require.True(t, errors.As(err, &ce))
	assert.Len(t, ce.Problems, 2)
}

func TestConfigValidate_FieldRules(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Mono.D = math.NaN()
	cfg.Sample.Pos[1] = math.Inf(1)
	cfg.Senses.Ana = 0
	cfg.Ana.Mosaic = -1
	cfg.Algorithm = 7

	err := cfg.Validate()
	require.ErrorIs(t, err, instrument.ErrConfiguration)
	var ce *instrument.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.ElementsMatch(t, []string{
		"algorithm must be one of 1 2 3",
		"mono.d must be > 0",
		"ana.mosaic must be >= 0",
		"sample.pos[1] must be finite",
		"senses.ana must be one of -1 1",
	}, ce.Problems)

	// the guide replaces the first collimator, which may then be zero
	cfg = defaultConfig(t)
	cfg.Collimation.H[0] = 0
	require.Error(t, cfg.Validate())
	cfg.Guide = instrument.Guide{Enabled: true, DivH: 0.1, DivV: 0.1}
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate_ZeroMosaicAllowed(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Mono.Mosaic = 0
	require.NoError(t, cfg.Validate())
}

func TestDivergences_Guide(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Guide = instrument.Guide{Enabled: true, DivH: 0.1 * instrument.ArcminToRad * 60, DivV: 0.2}
	d := cfg.Divergences(2 * math.Pi)
	assert.InDelta(t, cfg.Guide.DivH, d[0], 1e-15) // λ = 1 Å
	assert.InDelta(t, 0.2, d[2], 1e-15)
	assert.Equal(t, cfg.Collimation.H[1], d[1])
}

func TestCurvatures(t *testing.T) {
	cr := instrument.Crystal{FocusH: instrument.FocusOptimal, FocusV: instrument.FocusFixed, CurvV: 0.5}
	h, v := cr.Curvatures(-math.Pi/6, 2, 2)
	assert.InDelta(t, 0.25, h, 1e-12)
	assert.Equal(t, 0.5, v)

	flat := instrument.Crystal{}
	h, v = flat.Curvatures(0.3, 1, 1)
	assert.Zero(t, h)
	assert.Zero(t, v)
}

func TestParseFile(t *testing.T) {
	data := []byte(`
algorithm: pop
mono:
  d: 3.355
  mosaic: 45
  reflectivity: 0.8
  width: 12
  height: 8
  depth: 0.3
  focus_v: optimal
collimation:
  h: [60, 40, 40, 80]
`)
	f, err := instrument.ParseFile(data)
	require.NoError(t, err)
	cfg, err := f.Config()
	require.NoError(t, err)
	assert.Equal(t, instrument.Popovici, cfg.Algorithm)
	assert.InDelta(t, 45*instrument.ArcminToRad, cfg.Mono.Mosaic, 1e-15)
	assert.InDelta(t, 0.12, cfg.Mono.Width, 1e-15)
	assert.Equal(t, instrument.FocusOptimal, cfg.Mono.FocusV)
	assert.InDelta(t, 80*instrument.ArcminToRad, cfg.Collimation.H[3], 1e-15)
	// untouched keys keep their defaults
	assert.InDelta(t, 30*instrument.ArcminToRad, cfg.Collimation.V[0], 1e-15)
	assert.Equal(t, -1, cfg.Senses.Ana)
}

func TestParseFile_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"bad algorithm": "algorithm: foo\n",
		"bad sense":     "senses: {mono: 2, sample: 1, ana: -1}\n",
		"negative d":    "mono: {d: -1, reflectivity: 1}\n",
		"bad focus":     "ana: {d: 3.355, reflectivity: 1, focus_h: wobbly}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := instrument.ParseFile([]byte(doc))
			require.ErrorIs(t, err, instrument.ErrConfiguration)
		})
	}
	_, err := instrument.ParseFile([]byte("mono: [1, 2"))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("algorithm: eck\n"), 0o600))
	f, err := instrument.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "eck", f.Algorithm)

	_, err = instrument.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

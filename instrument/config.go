// SPDX-License-Identifier: MIT

// Package instrument describes a triple-axis spectrometer and a scattering
// position on it.
//
// Config is one flat value for all three resolution models; Algorithm selects
// which optional fields matter:
//
//   - CooperNathans: d-spacings, mosaics, collimations, senses.
//   - Popovici: adds component sizes, curvatures and distances.
//   - EckoldSobolev: adds vertical mosaics and the sample offset on top of the
//     Popovici set (crystal depths are not used).
//
// All fields use the engine's units: radians, Å⁻¹, meV, metres. Conversion
// from instrument-scientist units (arc-minutes, centimetres) happens in File.
package instrument

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Algorithm selects the resolution model.
type Algorithm int

const (
	// CooperNathans is the point-like-component Gaussian model.
	CooperNathans Algorithm = iota + 1
	// Popovici adds finite component sizes and crystal curvature.
	Popovici
	// EckoldSobolev is the arm-by-arm model with vertical mosaic and sample offset.
	EckoldSobolev
)

// String returns the short name used in files and on the command line.
func (a Algorithm) String() string {
	switch a {
	case CooperNathans:
		return "cn"
	case Popovici:
		return "pop"
	case EckoldSobolev:
		return "eck"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// ParseAlgorithm accepts the short names and a few long spellings.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cn", "cooper-nathans", "coopernathans":
		return CooperNathans, nil
	case "pop", "popovici":
		return Popovici, nil
	case "eck", "eckold", "eckold-sobolev", "eckoldsobolev":
		return EckoldSobolev, nil
	}

	return 0, fmt.Errorf("%w: unknown algorithm %q", ErrConfiguration, s)
}

// Focus selects how a crystal curvature is chosen.
type Focus int

const (
	// FocusFlat uses a flat crystal (curvature 0).
	FocusFlat Focus = iota
	// FocusFixed uses the curvature given in the Crystal.
	FocusFixed
	// FocusOptimal uses the Rowland-optimal curvature for the current angle.
	FocusOptimal
)

// Shape of a beam-defining component footprint.
type Shape int

const (
	// Rectangular footprints have variance w²/12.
	Rectangular Shape = iota
	// Circular footprints have variance d²/16.
	Circular
)

// Crystal is a monochromator or analyser.
type Crystal struct {
	D            float64 `validate:"gt=0,finite"`  // d-spacing, Å
	Mosaic       float64 `validate:"gte=0,finite"` // horizontal mosaic FWHM, rad
	MosaicV      float64 `validate:"gte=0,finite"` // vertical mosaic FWHM, rad (Eckold-Sobolev)
	Reflectivity float64 `validate:"gt=0,finite"`  // peak reflectivity or efficiency, 0..1

	Width, Height, Depth float64 `validate:"gte=0,finite"` // m
	CurvH, CurvV         float64 `validate:"finite"`       // 1/m, used with FocusFixed
	FocusH, FocusV       Focus   `validate:"oneof=0 1 2"`
}

// Sample holds the sample mosaic and geometry.
type Sample struct {
	Mosaic, MosaicV      float64    `validate:"gte=0,finite"` // FWHM, rad
	Width, Height, Depth float64    `validate:"gte=0,finite"` // m; Width is the diameter when Shape is Circular
	Shape                Shape      `validate:"oneof=0 1"`
	Pos                  [3]float64 `validate:"dive,finite"` // offset from the nominal position (along ki, perpendicular, up), m
}

// Slab is a source or detector footprint.
type Slab struct {
	Width, Height float64 `validate:"gte=0,finite"` // m; Width is the diameter when Shape is Circular
	Shape         Shape   `validate:"oneof=0 1"`
}

// Collimation holds FWHM divergences (rad) in beam order:
// [source-mono, mono-sample, sample-ana, ana-detector].
type Collimation struct {
	H [4]float64 `validate:"dive,gte=0,finite"`
	V [4]float64 `validate:"dive,gte=0,finite"`
}

// Guide replaces the first collimator by a neutron guide whose divergence
// scales with wavelength.
type Guide struct {
	Enabled    bool
	DivH, DivV float64 `validate:"gte=0,finite"` // rad/Å
}

// Distances between components (m).
type Distances struct {
	SourceMono, MonoSample, SampleAna, AnaDetector float64 `validate:"gte=0,finite"`
}

// Senses are the scattering senses (+1 counter-clockwise, -1 clockwise).
type Senses struct {
	Mono, Sample, Ana int `validate:"oneof=-1 1"`
}

// Config is the complete instrument description.
type Config struct {
	Algorithm   Algorithm `validate:"oneof=1 2 3"`
	Mono, Ana   Crystal
	Sample      Sample
	Source      Slab
	Detector    Slab
	Collimation Collimation
	Guide       Guide
	Dist        Distances
	Senses      Senses
}

// configValidate checks the algorithm-independent field rules carried by the
// struct tags; "finite" rejects NaN and ±Inf.
var configValidate = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.Float64 && f.Kind() != reflect.Float32 {
			return true
		}
		x := f.Float()

		return !math.IsNaN(x) && !math.IsInf(x, 0)
	})

	return v
}

// Validate checks the fields required by c.Algorithm and returns a
// *ConfigError listing every problem, or nil.
//
// Field ranges come from the struct tags; the rules that depend on the
// algorithm or on the guide are checked here.
//
// Zero mosaics pass validation: they are a legitimate limit that the solvers
// report as a singular matrix rather than a configuration problem.
func (c *Config) Validate() error {
	var p []string
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		for _, fe := range verrs {
			p = append(p, describeField(fe))
		}
	}
	pos := func(name string, v float64) {
		if !(v > 0) {
			p = append(p, fmt.Sprintf("%s must be > 0", name))
		}
	}

	for i := 0; i < 4; i++ {
		if i == 0 && c.Guide.Enabled {
			pos("guide.divh", c.Guide.DivH)
			pos("guide.divv", c.Guide.DivV)

			continue
		}
		pos(fmt.Sprintf("collimation.h[%d]", i), c.Collimation.H[i])
		pos(fmt.Sprintf("collimation.v[%d]", i), c.Collimation.V[i])
	}

	if c.Algorithm == Popovici || c.Algorithm == EckoldSobolev {
		pos("dist.sourcemono", c.Dist.SourceMono)
		pos("dist.monosample", c.Dist.MonoSample)
		pos("dist.sampleana", c.Dist.SampleAna)
		pos("dist.anadetector", c.Dist.AnaDetector)
		pos("source.width", c.Source.Width)
		pos("source.height", c.Source.Height)
		pos("detector.width", c.Detector.Width)
		pos("detector.height", c.Detector.Height)
		pos("mono.width", c.Mono.Width)
		pos("mono.height", c.Mono.Height)
		pos("ana.width", c.Ana.Width)
		pos("ana.height", c.Ana.Height)
	}
	if c.Algorithm == Popovici {
		pos("mono.depth", c.Mono.Depth)
		pos("ana.depth", c.Ana.Depth)
		pos("sample.width", c.Sample.Width)
		pos("sample.height", c.Sample.Height)
		if c.Sample.Shape == Rectangular {
			pos("sample.depth", c.Sample.Depth)
		}
	}

	if len(p) > 0 {
		return &ConfigError{Algorithm: c.Algorithm, Problems: p}
	}

	return nil
}

// describeField renders a tag failure with the same lower-case field path
// as the hand-written rules, e.g. "senses.ana must be one of -1 1".
func describeField(fe validator.FieldError) string {
	name := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be > %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, fe.Param())
	case "finite":
		return fmt.Sprintf("%s must be finite", name)
	default:
		return fmt.Sprintf("%s failed %q", name, fe.Tag())
	}
}

// Divergences returns the eight effective collimations in the order
// [α0 α1 β0 β1 α2 α3 β2 β3], substituting the guide for α0/β0 at wavenumber ki.
func (c *Config) Divergences(ki float64) [8]float64 {
	h, v := c.Collimation.H, c.Collimation.V
	if c.Guide.Enabled {
		lam := Wavelength(ki)
		h[0] = c.Guide.DivH * lam
		v[0] = c.Guide.DivV * lam
	}

	return [8]float64{h[0], h[1], v[0], v[1], h[2], h[3], v[2], v[3]}
}

// Curvatures returns the effective (horizontal, vertical) curvature of a
// crystal at Bragg angle theta between arms of length l0 and l1.
func (cr Crystal) Curvatures(theta, l0, l1 float64) (h, v float64) {
	s := math.Abs(math.Sin(theta))
	switch cr.FocusH {
	case FocusFixed:
		h = cr.CurvH
	case FocusOptimal:
		h = s * (1/l0 + 1/l1) / 2
	}
	switch cr.FocusV {
	case FocusFixed:
		v = cr.CurvV
	case FocusOptimal:
		v = (1/l0 + 1/l1) / (2 * s)
	}

	return h, v
}

// Variance returns the positional variance of a footprint of size w.
func (s Shape) Variance(w float64) float64 {
	if s == Circular {
		return w * w / 16
	}

	return w * w / 12
}

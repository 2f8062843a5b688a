// SPDX-License-Identifier: MIT

package instrument

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// fileValidate is shared; validator.Validate caches struct metadata and is
// safe for concurrent use.
var fileValidate = validator.New(validator.WithRequiredStructEnabled())

// File is the on-disk instrument description in instrument-scientist units:
// angles in arc-minutes, lengths in centimetres, d-spacings in Å, guide
// divergence in arc-minutes per Å.
type File struct {
	Algorithm   string          `yaml:"algorithm" validate:"required,oneof=cn pop eck"`
	Mono        FileCrystal     `yaml:"mono"`
	Ana         FileCrystal     `yaml:"ana"`
	Sample      FileSample      `yaml:"sample"`
	Source      FileSlab        `yaml:"source"`
	Detector    FileSlab        `yaml:"detector"`
	Collimation FileCollimation `yaml:"collimation"`
	Guide       FileGuide       `yaml:"guide"`
	Dist        FileDistances   `yaml:"dist"`
	Senses      FileSenses      `yaml:"senses"`
}

// FileCrystal describes a monochromator or analyser crystal.
type FileCrystal struct {
	D            float64 `yaml:"d" validate:"gt=0"`
	Mosaic       float64 `yaml:"mosaic" validate:"gte=0"`
	MosaicV      float64 `yaml:"mosaic_v" validate:"gte=0"`
	Reflectivity float64 `yaml:"reflectivity" validate:"gt=0,lte=1"`
	Width        float64 `yaml:"width" validate:"gte=0"`
	Height       float64 `yaml:"height" validate:"gte=0"`
	Depth        float64 `yaml:"depth" validate:"gte=0"`
	FocusH       string  `yaml:"focus_h" validate:"omitempty,oneof=flat fixed optimal"`
	FocusV       string  `yaml:"focus_v" validate:"omitempty,oneof=flat fixed optimal"`
	RadiusH      float64 `yaml:"radius_h" validate:"gte=0"`
	RadiusV      float64 `yaml:"radius_v" validate:"gte=0"`
}

// FileSample describes the sample.
type FileSample struct {
	Mosaic  float64    `yaml:"mosaic" validate:"gte=0"`
	MosaicV float64    `yaml:"mosaic_v" validate:"gte=0"`
	Shape   string     `yaml:"shape" validate:"omitempty,oneof=rect circle"`
	Width   float64    `yaml:"width" validate:"gte=0"`
	Height  float64    `yaml:"height" validate:"gte=0"`
	Depth   float64    `yaml:"depth" validate:"gte=0"`
	Pos     [3]float64 `yaml:"pos"`
}

// FileSlab describes the source or the detector.
type FileSlab struct {
	Shape  string  `yaml:"shape" validate:"omitempty,oneof=rect circle"`
	Width  float64 `yaml:"width" validate:"gte=0"`
	Height float64 `yaml:"height" validate:"gte=0"`
}

// FileCollimation holds the four horizontal and four vertical collimations.
type FileCollimation struct {
	H [4]float64 `yaml:"h" validate:"dive,gte=0"`
	V [4]float64 `yaml:"v" validate:"dive,gte=0"`
}

// FileGuide enables the neutron guide in place of the first collimator.
type FileGuide struct {
	Enabled bool    `yaml:"enabled"`
	DivH    float64 `yaml:"div_h" validate:"gte=0"`
	DivV    float64 `yaml:"div_v" validate:"gte=0"`
}

// FileDistances are the component distances.
type FileDistances struct {
	SourceMono  float64 `yaml:"source_mono" validate:"gte=0"`
	MonoSample  float64 `yaml:"mono_sample" validate:"gte=0"`
	SampleAna   float64 `yaml:"sample_ana" validate:"gte=0"`
	AnaDetector float64 `yaml:"ana_detector" validate:"gte=0"`
}

// FileSenses are the scattering senses.
type FileSenses struct {
	Mono   int `yaml:"mono" validate:"oneof=-1 1"`
	Sample int `yaml:"sample" validate:"oneof=-1 1"`
	Ana    int `yaml:"ana" validate:"oneof=-1 1"`
}

// DefaultFile returns a thermal-neutron spectrometer with PG(002) crystals,
// 30' mosaics and 30' collimation in every slot.
func DefaultFile() File {
	crystal := FileCrystal{
		D: 3.355, Mosaic: 30, MosaicV: 30, Reflectivity: 1,
		Width: 15, Height: 15, Depth: 0.2,
		FocusH: "flat", FocusV: "flat",
	}

	return File{
		Algorithm: "cn",
		Mono:      crystal,
		Ana:       crystal,
		Sample:    FileSample{Shape: "circle", Width: 1, Height: 1, Depth: 1},
		Source:    FileSlab{Shape: "rect", Width: 6, Height: 12},
		Detector:  FileSlab{Shape: "rect", Width: 2.5, Height: 10},
		Collimation: FileCollimation{
			H: [4]float64{30, 30, 30, 30},
			V: [4]float64{30, 30, 30, 30},
		},
		Dist:   FileDistances{SourceMono: 1000, MonoSample: 200, SampleAna: 115, AnaDetector: 85},
		Senses: FileSenses{Mono: -1, Sample: 1, Ana: -1},
	}
}

// ParseFile decodes YAML over DefaultFile, so omitted keys keep their
// defaults, then validates the result.
func ParseFile(data []byte) (File, error) {
	f := DefaultFile()
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse instrument file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}

	return f, nil
}

// LoadFile reads and parses the YAML instrument file at path.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read instrument file: %w", err)
	}

	return ParseFile(data)
}

// Validate runs the struct-tag checks and then the algorithm-specific
// Config checks. Every failure matches ErrConfiguration.
func (f *File) Validate() error {
	if err := fileValidate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			problems := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			alg, _ := ParseAlgorithm(f.Algorithm)

			return &ConfigError{Algorithm: alg, Problems: problems}
		}

		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	cfg, err := f.Config()
	if err != nil {
		return err
	}

	return cfg.Validate()
}

// Config converts f to engine units. It does not validate.
func (f *File) Config() (Config, error) {
	alg, err := ParseAlgorithm(f.Algorithm)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Algorithm: alg,
		Mono:      f.Mono.crystal(),
		Ana:       f.Ana.crystal(),
		Sample: Sample{
			Mosaic:  f.Sample.Mosaic * ArcminToRad,
			MosaicV: f.Sample.MosaicV * ArcminToRad,
			Width:   f.Sample.Width * CmToM,
			Height:  f.Sample.Height * CmToM,
			Depth:   f.Sample.Depth * CmToM,
			Shape:   parseShape(f.Sample.Shape),
			Pos:     [3]float64{f.Sample.Pos[0] * CmToM, f.Sample.Pos[1] * CmToM, f.Sample.Pos[2] * CmToM},
		},
		Source:   f.Source.slab(),
		Detector: f.Detector.slab(),
		Guide: Guide{
			Enabled: f.Guide.Enabled,
			DivH:    f.Guide.DivH * ArcminToRad,
			DivV:    f.Guide.DivV * ArcminToRad,
		},
		Dist: Distances{
			SourceMono:  f.Dist.SourceMono * CmToM,
			MonoSample:  f.Dist.MonoSample * CmToM,
			SampleAna:   f.Dist.SampleAna * CmToM,
			AnaDetector: f.Dist.AnaDetector * CmToM,
		},
		Senses: Senses{Mono: f.Senses.Mono, Sample: f.Senses.Sample, Ana: f.Senses.Ana},
	}
	for i := 0; i < 4; i++ {
		cfg.Collimation.H[i] = f.Collimation.H[i] * ArcminToRad
		cfg.Collimation.V[i] = f.Collimation.V[i] * ArcminToRad
	}

	return cfg, nil
}

func (c FileCrystal) crystal() Crystal {
	cr := Crystal{
		D:            c.D,
		Mosaic:       c.Mosaic * ArcminToRad,
		MosaicV:      c.MosaicV * ArcminToRad,
		Reflectivity: c.Reflectivity,
		Width:        c.Width * CmToM,
		Height:       c.Height * CmToM,
		Depth:        c.Depth * CmToM,
		FocusH:       parseFocus(c.FocusH),
		FocusV:       parseFocus(c.FocusV),
	}
	if c.RadiusH > 0 {
		cr.CurvH = 1 / (c.RadiusH * CmToM)
	}
	if c.RadiusV > 0 {
		cr.CurvV = 1 / (c.RadiusV * CmToM)
	}

	return cr
}

func (s FileSlab) slab() Slab {
	return Slab{Width: s.Width * CmToM, Height: s.Height * CmToM, Shape: parseShape(s.Shape)}
}

func parseShape(s string) Shape {
	if s == "circle" {
		return Circular
	}

	return Rectangular
}

func parseFocus(s string) Focus {
	switch s {
	case "fixed":
		return FocusFixed
	case "optimal":
		return FocusOptimal
	default:
		return FocusFlat
	}
}

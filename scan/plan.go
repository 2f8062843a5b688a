// SPDX-License-Identifier: MIT

package scan

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/tasreso/instrument"
)

// ErrBadPlan indicates a scan plan that names no points or an unknown fixed
// wavenumber.
var ErrBadPlan = errors.New("scan: bad plan")

// Plan is the YAML form of a scan:
//
//	fixed: kf
//	k: 2.662
//	points:
//	  - {q: 1.5, e: 2}
//	range:
//	  from: {q: 1.5, e: 0}
//	  to:   {q: 1.5, e: 8}
//	  steps: 17
//
// Explicit points come first, then the range.
type Plan struct {
	Fixed  string  `yaml:"fixed"`
	K      float64 `yaml:"k"`
	Points []Point `yaml:"points"`
	Range  *Range  `yaml:"range"`
}

// Range is a straight line of Steps points from From to To inclusive.
type Range struct {
	From  Point `yaml:"from"`
	To    Point `yaml:"to"`
	Steps int   `yaml:"steps"`
}

// Expand returns the points of the range.
func (r Range) Expand() []Point {
	if r.Steps < 1 {
		return nil
	}
	if r.Steps == 1 {
		return []Point{r.From}
	}
	out := make([]Point, r.Steps)
	last := float64(r.Steps - 1)
	for i := range out {
		t := float64(i) / last
		out[i] = Point{
			Q: r.From.Q + t*(r.To.Q-r.From.Q),
			E: r.From.E + t*(r.To.E-r.From.E),
		}
	}

	return out
}

// ParsePlan decodes and checks a YAML plan.
func ParsePlan(data []byte) (Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("parse scan plan: %w", err)
	}
	if _, err := p.fixed(); err != nil {
		return Plan{}, err
	}
	if !(p.K > 0) {
		return Plan{}, fmt.Errorf("%w: k must be positive, got %g", ErrBadPlan, p.K)
	}
	if len(p.points()) == 0 {
		return Plan{}, fmt.Errorf("%w: no points", ErrBadPlan)
	}

	return p, nil
}

// LoadPlan reads a plan from path.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read scan plan: %w", err)
	}

	return ParsePlan(data)
}

// Request binds the plan to an instrument.
func (p Plan) Request(cfg instrument.Config) (Request, error) {
	fixed, err := p.fixed()
	if err != nil {
		return Request{}, err
	}

	return Request{Config: cfg, Fixed: fixed, K: p.K, Points: p.points()}, nil
}

func (p Plan) fixed() (instrument.FixedK, error) {
	switch p.Fixed {
	case "", "kf":
		return instrument.FixKf, nil
	case "ki":
		return instrument.FixKi, nil
	}

	return 0, fmt.Errorf("%w: fixed must be ki or kf, got %q", ErrBadPlan, p.Fixed)
}

func (p Plan) points() []Point {
	pts := append([]Point(nil), p.Points...)
	if p.Range != nil {
		pts = append(pts, p.Range.Expand()...)
	}

	return pts
}

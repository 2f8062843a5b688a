// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/lattice"
)

// posFlags selects one scattering position, either by |Q| or by (hkl)
// through a unit cell and scattering plane.
type posFlags struct {
	q, e, k float64
	fixed   string
	hkl     []float64
	cell    []float64
	orient1 []float64
	orient2 []float64
	tol     float64
}

func (p *posFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&p.q, "q", 1.8, "momentum transfer |Q| (1/A)")
	f.Float64VarP(&p.e, "energy", "e", 0, "energy transfer (meV)")
	f.Float64Var(&p.k, "k", 2.662, "fixed wavenumber (1/A)")
	f.StringVar(&p.fixed, "fixed", "kf", "wavenumber held fixed: ki or kf")
	f.Float64SliceVar(&p.hkl, "hkl", nil, "Miller indices h,k,l; overrides --q")
	f.Float64SliceVar(&p.cell, "cell", []float64{5, 5, 5, 90, 90, 90}, "unit cell a,b,c (A),alpha,beta,gamma (deg)")
	f.Float64SliceVar(&p.orient1, "orient1", []float64{1, 0, 0}, "first scattering-plane vector")
	f.Float64SliceVar(&p.orient2, "orient2", []float64{0, 1, 0}, "second scattering-plane vector")
	f.Float64Var(&p.tol, "plane-tol", 1e-6, "out-of-plane tolerance (1/A)")
}

func parseFixed(s string) (instrument.FixedK, error) {
	switch s {
	case "kf":
		return instrument.FixKf, nil
	case "ki":
		return instrument.FixKi, nil
	}

	return 0, fmt.Errorf("--fixed must be ki or kf, got %q", s)
}

func vec3(name string, v []float64) ([3]float64, error) {
	if len(v) != 3 {
		return [3]float64{}, fmt.Errorf("--%s needs 3 values, got %d", name, len(v))
	}

	return [3]float64{v[0], v[1], v[2]}, nil
}

func (p *posFlags) resolve(cfg *instrument.Config) (instrument.Position, error) {
	fixed, err := parseFixed(p.fixed)
	if err != nil {
		return instrument.Position{}, err
	}
	if len(p.hkl) == 0 {
		return fixed.Resolve(cfg, p.k, p.q, p.e)
	}

	hkl, err := vec3("hkl", p.hkl)
	if err != nil {
		return instrument.Position{}, err
	}
	if len(p.cell) != 6 {
		return instrument.Position{}, fmt.Errorf("--cell needs 6 values, got %d", len(p.cell))
	}
	deg := math.Pi / 180
	cell := lattice.Cell{
		A: p.cell[0], B: p.cell[1], C: p.cell[2],
		Alpha: p.cell[3] * deg, Beta: p.cell[4] * deg, Gamma: p.cell[5] * deg,
	}
	o1, err := vec3("orient1", p.orient1)
	if err != nil {
		return instrument.Position{}, err
	}
	o2, err := vec3("orient2", p.orient2)
	if err != nil {
		return instrument.Position{}, err
	}
	plane, err := lattice.NewPlane(cell, o1, o2)
	if err != nil {
		return instrument.Position{}, err
	}

	return instrument.NewPositionFromHKL(cfg, plane, hkl, p.e, fixed, p.k, p.tol)
}

// SPDX-License-Identifier: MIT

package ellipse

import (
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/tasreso/matrix"
)

// Descriptor is the common part of the ellipse and ellipsoid views: the kept
// coordinates in order, their labels, principal axes, half-widths, offsets
// (the mean) and the enclosed HWHM area/volume.
type Descriptor struct {
	Coords   []Coord
	Labels   []string
	Rotation *matrix.Dense
	HWHM     []float64
	Offset   []float64
	Volume   float64
}

// EllipseDescriptor is a 2-D view.
type EllipseDescriptor struct {
	Descriptor
	// Angle of the first principal axis from the x coordinate (rad).
	Angle float64
}

// EllipsoidDescriptor is a 3-D view.
type EllipsoidDescriptor struct {
	Descriptor
}

// Ellipsoid4DDescriptor is the full (Q_para, Q_perp, Q_up, E) view.
type Ellipsoid4DDescriptor struct {
	Descriptor
}

// Area is the HWHM ellipse area, πab.
func (e EllipseDescriptor) Area() float64 { return e.Volume }

// Points returns n points on the HWHM contour, offset by the mean, for
// plotting. n < 3 is raised to 3.
func (e EllipseDescriptor) Points(n int) [][2]float64 {
	n = max(n, 3)
	pts := make([][2]float64, n)
	r := e.Rotation
	for k := range pts {
		t := 2 * math.Pi * float64(k) / float64(n)
		u, v := e.HWHM[0]*math.Cos(t), e.HWHM[1]*math.Sin(t)
		pts[k] = [2]float64{
			e.Offset[0] + r.Value(0, 0)*u + r.Value(0, 1)*v,
			e.Offset[1] + r.Value(1, 0)*u + r.Value(1, 1)*v,
		}
	}

	return pts
}

// Ellipse builds the 2-D view on (x, y). The remaining live coordinates must
// be split between remove (sliced at the mean) and integrate (marginalized);
// removal is applied first.
func (f *Form) Ellipse(x, y Coord, integrate, remove []Coord) (EllipseDescriptor, error) {
	d, err := f.view([]Coord{x, y}, integrate, remove)
	if err != nil {
		return EllipseDescriptor{}, fmt.Errorf("ellipse: %w", err)
	}

	return EllipseDescriptor{Descriptor: d, Angle: math.Atan2(d.Rotation.Value(1, 0), d.Rotation.Value(0, 0))}, nil
}

// Ellipsoid builds the 3-D view on (x, y, z); see Ellipse for the selection
// rules.
func (f *Form) Ellipsoid(x, y, z Coord, integrate, remove []Coord) (EllipsoidDescriptor, error) {
	d, err := f.view([]Coord{x, y, z}, integrate, remove)
	if err != nil {
		return EllipsoidDescriptor{}, fmt.Errorf("ellipsoid: %w", err)
	}

	return EllipsoidDescriptor{Descriptor: d}, nil
}

// Ellipsoid4D builds the full view. The form must hold exactly the four
// physical coordinates; they are reordered to (Q_para, Q_perp, Q_up, E).
func (f *Form) Ellipsoid4D() (Ellipsoid4DDescriptor, error) {
	if f.Dim() != len(Physical) {
		return Ellipsoid4DDescriptor{}, fmt.Errorf("ellipsoid4d: %w: form has %d coordinates", ErrBadSelection, f.Dim())
	}
	d, err := f.view(Physical, nil, nil)
	if err != nil {
		return Ellipsoid4DDescriptor{}, fmt.Errorf("ellipsoid4d: %w", err)
	}

	return Ellipsoid4DDescriptor{Descriptor: d}, nil
}

func (f *Form) view(keep, integrate, remove []Coord) (Descriptor, error) {
	all := slices.Concat(keep, integrate, remove)
	if dup := firstDuplicate(all); dup >= 0 {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrDuplicateCoord, all[dup])
	}
	for _, c := range all {
		if _, ok := f.Index(c); !ok {
			return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownCoord, c)
		}
	}
	if len(all) != f.Dim() {
		return Descriptor{}, fmt.Errorf("%w: %d of %d coordinates accounted for", ErrBadSelection, len(all), f.Dim())
	}

	g, err := f.Remove(remove...)
	if err != nil {
		return Descriptor{}, err
	}
	if g, err = g.Integrate(integrate...); err != nil {
		return Descriptor{}, err
	}
	if g, err = g.Select(keep...); err != nil {
		return Descriptor{}, err
	}
	axes, err := g.PrincipalAxes()
	if err != nil {
		return Descriptor{}, err
	}

	labels := make([]string, len(keep))
	for i, c := range keep {
		labels[i] = c.Label()
	}

	return Descriptor{
		Coords:   slices.Clone(keep),
		Labels:   labels,
		Rotation: axes.Rotation,
		HWHM:     axes.HWHM,
		Offset:   g.Offset(),
		Volume:   axes.Volume,
	}, nil
}

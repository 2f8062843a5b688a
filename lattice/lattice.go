// SPDX-License-Identifier: MIT

// Package lattice converts unit-cell parameters and a scattering plane into
// the UB-style transform used to place (hkl) positions in the spectrometer
// frame.
//
// Conventions:
//   - Lengths in Å, angles in radians, momentum in Å⁻¹ (2π included).
//   - B follows Busing & Levy (Acta Cryst. 22, 457, 1967), row-major.
//   - The plane frame has x along the first orientation vector, z along the
//     plane normal, y completing a right-handed set.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/tasreso/matrix"
)

var (
	// ErrInvalidCell indicates non-positive lengths or angles that do not
	// describe a real cell (zero volume).
	ErrInvalidCell = errors.New("lattice: invalid unit cell")

	// ErrCollinearPlane indicates orientation vectors that do not span a plane.
	ErrCollinearPlane = errors.New("lattice: orientation vectors are collinear")

	// ErrOutOfPlane indicates a Q vector whose normal component exceeds tolerance.
	ErrOutOfPlane = errors.New("lattice: position is out of the scattering plane")
)

// Cell holds direct-lattice parameters.
type Cell struct {
	A, B, C            float64 // Å
	Alpha, Beta, Gamma float64 // rad
}

// Volume returns the direct-cell volume in Å³.
func (c Cell) Volume() float64 {
	ca, cb, cg := math.Cos(c.Alpha), math.Cos(c.Beta), math.Cos(c.Gamma)
	v2 := 1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg
	if v2 <= 0 {
		return 0
	}

	return c.A * c.B * c.C * math.Sqrt(v2)
}

// BMatrix returns the Busing-Levy B matrix (with the 2π factor) mapping
// fractional Miller indices to a Cartesian crystal frame.
func BMatrix(c Cell) (*matrix.Dense, error) {
	if c.A <= 0 || c.B <= 0 || c.C <= 0 || c.Alpha <= 0 || c.Beta <= 0 || c.Gamma <= 0 {
		return nil, ErrInvalidCell
	}
	vol := c.Volume()
	if vol <= 0 {
		return nil, ErrInvalidCell
	}
	sa, sb, sg := math.Sin(c.Alpha), math.Sin(c.Beta), math.Sin(c.Gamma)
	ca, cb, cg := math.Cos(c.Alpha), math.Cos(c.Beta), math.Cos(c.Gamma)

	as := 2 * math.Pi * c.B * c.C * sa / vol
	bs := 2 * math.Pi * c.A * c.C * sb / vol
	cs := 2 * math.Pi * c.A * c.B * sg / vol
	cosBs := (ca*cg - cb) / (sa * sg)
	cosGs := (ca*cb - cg) / (sa * sb)
	sinBs := math.Sqrt(math.Max(0, 1-cosBs*cosBs))
	sinGs := math.Sqrt(math.Max(0, 1-cosGs*cosGs))

	return matrix.NewFromRows([][]float64{
		{as, bs * cosGs, cs * cosBs},
		{0, bs * sinGs, -cs * sinBs * ca},
		{0, 0, 2 * math.Pi / c.C},
	})
}

// Plane is a resolved scattering plane: UB maps (hkl) into the plane frame.
type Plane struct {
	UB *matrix.Dense
}

// NewPlane orients cell c so that orient1 lies along x and orient1 × orient2
// along z.
func NewPlane(c Cell, orient1, orient2 [3]float64) (*Plane, error) {
	b, err := BMatrix(c)
	if err != nil {
		return nil, err
	}
	v1, _ := matrix.MatVec(b, orient1[:])
	v2, _ := matrix.MatVec(b, orient2[:])

	x := normalize(v1)
	z := normalize(cross(v1, v2))
	if x == nil || z == nil {
		return nil, ErrCollinearPlane
	}
	y := cross(z, x)

	u, err := matrix.NewFromRows([][]float64{x, y, z})
	if err != nil {
		return nil, fmt.Errorf("lattice: orientation: %w", err)
	}
	ub, err := matrix.Mul(u, b)
	if err != nil {
		return nil, fmt.Errorf("lattice: UB: %w", err)
	}

	return &Plane{UB: ub}, nil
}

// Q returns the momentum-transfer vector of (hkl) in the plane frame.
func (p *Plane) Q(hkl [3]float64) [3]float64 {
	q, _ := matrix.MatVec(p.UB, hkl[:])

	return [3]float64{q[0], q[1], q[2]}
}

// InPlane returns |Q| for (hkl), or ErrOutOfPlane when the normal component
// exceeds tol (Å⁻¹).
func (p *Plane) InPlane(hkl [3]float64, tol float64) (float64, error) {
	q := p.Q(hkl)
	if math.Abs(q[2]) > tol {
		return 0, fmt.Errorf("%w: Q_z = %.6g 1/A", ErrOutOfPlane, q[2])
	}

	return math.Hypot(q[0], q[1]), nil
}

// HKL maps a plane-frame vector back to fractional Miller indices.
func (p *Plane) HKL(q [3]float64) ([3]float64, error) {
	inv, err := matrix.Inverse(p.UB)
	if err != nil {
		return [3]float64{}, fmt.Errorf("lattice: UB: %w", err)
	}
	h, _ := matrix.MatVec(inv, q[:])

	return [3]float64{h[0], h[1], h[2]}, nil
}

func cross(a, b []float64) []float64 {
	return []float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v []float64) []float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n < 1e-12 {
		return nil
	}

	return []float64{v[0] / n, v[1] / n, v[2] / n}
}

// SPDX-License-Identifier: MIT

// Package montecarlo draws (Q, E) points distributed according to a
// resolution ellipsoid.
//
// A Sampler is built once from an ellipse.Ellipsoid4DDescriptor. Each call to
// Sample returns a fresh Stream with its own random source; a Stream yields
// its points once and cannot be rewound. Samplers are safe for concurrent
// use, Streams are not.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/tasreso/ellipse"
)

// ErrBadDescriptor indicates a descriptor that is not a 4-D ellipsoid with
// positive half-widths.
var ErrBadDescriptor = errors.New("montecarlo: bad descriptor")

// DefaultCheckEvery is the number of draws between context checks.
const DefaultCheckEvery = 1024

// hwhmToSigma converts a half width at half maximum to a standard deviation.
var hwhmToSigma = 1 / math.Sqrt(2*math.Ln2)

// Options configures a Sampler.
type Options struct {
	Seed       uint64
	seeded     bool
	CheckEvery int
}

// Option mutates Options.
type Option func(*Options)

// WithSeed makes the sequence of streams reproducible.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed, o.seeded = seed, true }
}

// WithCheckEvery sets how many draws pass between cancellation checks.
// Values below 1 are ignored.
func WithCheckEvery(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.CheckEvery = n
		}
	}
}

// Sampler draws from one ellipsoid.
type Sampler struct {
	rot    [4][4]float64
	sigma  [4]float64
	offset [4]float64

	seed       uint64
	checkEvery int
	streams    atomic.Uint64
}

// NewSampler prepares draws from d.
func NewSampler(d ellipse.Ellipsoid4DDescriptor, opts ...Option) (*Sampler, error) {
	if d.Rotation == nil || d.Rotation.Rows() != 4 || d.Rotation.Cols() != 4 || len(d.HWHM) != 4 || len(d.Offset) != 4 {
		return nil, fmt.Errorf("%w: need a 4-D ellipsoid", ErrBadDescriptor)
	}
	o := Options{CheckEvery: DefaultCheckEvery}
	for _, fn := range opts {
		fn(&o)
	}
	if !o.seeded {
		o.Seed = rand.Uint64()
	}

	s := &Sampler{seed: o.Seed, checkEvery: o.CheckEvery}
	for i := 0; i < 4; i++ {
		h := d.HWHM[i]
		if !(h > 0) || math.IsInf(h, 0) {
			return nil, fmt.Errorf("%w: half-width %d is %g", ErrBadDescriptor, i, h)
		}
		s.sigma[i] = h * hwhmToSigma
		s.offset[i] = d.Offset[i]
		for j := 0; j < 4; j++ {
			s.rot[i][j] = d.Rotation.Value(i, j)
		}
	}

	return s, nil
}

// Sample returns a stream of n points. Cancelling ctx ends the stream early
// and Err reports why.
func (s *Sampler) Sample(ctx context.Context, n int) *Stream {
	src := rand.NewPCG(s.seed, s.streams.Add(1))
	st := &Stream{s: s, ctx: ctx, left: max(n, 0)}
	for i := range st.axes {
		st.axes[i] = distuv.Normal{Mu: 0, Sigma: s.sigma[i], Src: src}
	}

	return st
}

// Draw collects n points, or returns the context error with no points.
func (s *Sampler) Draw(ctx context.Context, n int) ([][4]float64, error) {
	st := s.Sample(ctx, n)
	out := make([][4]float64, 0, max(n, 0))
	for p := range st.All() {
		out = append(out, p)
	}
	if err := st.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Sample is shorthand for NewSampler(d, opts...).Sample(ctx, n).
func Sample(ctx context.Context, d ellipse.Ellipsoid4DDescriptor, n int, opts ...Option) (*Stream, error) {
	s, err := NewSampler(d, opts...)
	if err != nil {
		return nil, err
	}

	return s.Sample(ctx, n), nil
}

// Stream is a finite, non-restartable sequence of points in
// (Q_para, Q_perp, Q_up, E).
type Stream struct {
	s     *Sampler
	ctx   context.Context
	axes  [4]distuv.Normal
	left  int
	drawn int
	err   error
}

// Next returns the next point, or false once the stream is exhausted or
// cancelled.
func (st *Stream) Next() ([4]float64, bool) {
	if st.left == 0 || st.err != nil {
		return [4]float64{}, false
	}
	if st.drawn%st.s.checkEvery == 0 {
		if err := st.ctx.Err(); err != nil {
			st.err = err
			st.left = 0

			return [4]float64{}, false
		}
	}
	var z [4]float64
	for i := range z {
		z[i] = st.axes[i].Rand()
	}
	p := st.s.offset
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			p[i] += st.s.rot[i][j] * z[j]
		}
	}
	st.left--
	st.drawn++

	return p, true
}

// All ranges over the remaining points.
func (st *Stream) All() iter.Seq[[4]float64] {
	return func(yield func([4]float64) bool) {
		for {
			p, ok := st.Next()
			if !ok || !yield(p) {
				return
			}
		}
	}
}

// Err reports the cancellation that ended the stream, if any.
func (st *Stream) Err() error { return st.err }

// Drawn returns the number of points produced so far.
func (st *Stream) Drawn() int { return st.drawn }

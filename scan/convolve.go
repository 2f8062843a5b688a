// SPDX-License-Identifier: MIT

package scan

import (
	"context"
	"errors"
	"math"

	"github.com/katalvlaran/tasreso/montecarlo"
)

// ErrNilModel is returned by Convolve without a model.
var ErrNilModel = errors.New("scan: nil model")

// Model is a scattering function evaluated at an absolute
// (Q_para, Q_perp, Q_up, E) point of the resolution frame.
type Model func(q [4]float64) float64

// Convolve runs req and folds model with the resolution of every point:
// the intensity is R0 times the mean of model over Neutrons draws from the
// point's ellipsoid. Point i draws from seed Seed+i, so a run is
// reproducible for a fixed seed and independent of the worker count.
//
// A model returning NaN or ±Inf fails its point.
func (r *Runner) Convolve(ctx context.Context, req Request, model Model) (*Report, error) {
	if model == nil {
		return nil, ErrNilModel
	}
	n := r.opts.Neutrons

	return r.run(ctx, req, "scan.Convolve", func(ctx context.Context, pr *PointResult) error {
		form, err := pr.Result.Form()
		if err != nil {
			return err
		}
		d, err := form.Ellipsoid4D()
		if err != nil {
			return err
		}
		s, err := montecarlo.NewSampler(d, montecarlo.WithSeed(r.opts.Seed+uint64(pr.Index)))
		if err != nil {
			return err
		}

		st := s.Sample(ctx, n)
		var sum float64
		for q := range st.All() {
			sum += model(q)
		}
		if err := st.Err(); err != nil {
			return err
		}
		if r.opts.Metrics != nil {
			r.opts.Metrics.Neutrons.Add(float64(st.Drawn()))
		}
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return errors.New("scan: model is not finite")
		}
		pr.Intensity = pr.Result.R0 * sum / float64(n)

		return nil
	})
}

// SPDX-License-Identifier: MIT

// Package scan evaluates the resolution over many scan points in parallel.
//
// Points are independent: a bounded worker pool solves them, each worker
// writing only its own slot of the result slice. A failed point is recorded
// and skipped unless WithStopOnError is set. Cancellation is checked before
// every point and inside the Monte-Carlo loop of Convolve; a cancelled run
// returns the context error and no results.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/resolution"
)

// ErrPointFailed matches every *PointError.
var ErrPointFailed = errors.New("scan: point failed")

// Point is one (Q, E) scan point.
type Point struct {
	Q float64 `yaml:"q"` // Å⁻¹
	E float64 `yaml:"e"` // meV
}

// Request is a scan on one instrument: every point is resolved with the
// wavenumber Fixed held at K.
type Request struct {
	Config instrument.Config
	Fixed  instrument.FixedK
	K      float64
	Points []Point
}

// PointResult is the outcome of one point. Err is nil on success.
type PointResult struct {
	Index     int
	Point     Point
	Position  instrument.Position
	Result    resolution.Result
	Intensity float64 // set by Convolve
	Err       error
}

// Report is a completed run. Points are in request order.
type Report struct {
	RunID     string
	Algorithm instrument.Algorithm
	Points    []PointResult
	Failed    int
	Duration  time.Duration
}

// PointError is returned by a run with StopOnError.
type PointError struct {
	Index int
	Point Point
	Err   error
}

func (e *PointError) Error() string {
	return fmt.Sprintf("scan: point %d (Q=%g, E=%g): %v", e.Index, e.Point.Q, e.Point.E, e.Err)
}

// Unwrap returns the cause.
func (e *PointError) Unwrap() error { return e.Err }

// Is matches ErrPointFailed.
func (e *PointError) Is(target error) bool { return target == ErrPointFailed }

// Runner evaluates scans. It holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	opts Options
}

// NewRunner applies opts over the defaults.
func NewRunner(opts ...Option) *Runner {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	return &Runner{opts: o}
}

// Run solves every point of req.
//
// Errors: the configuration error when req.Config is invalid, ctx.Err() when
// cancelled, a *PointError with StopOnError.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	return r.run(ctx, req, "scan.Run", nil)
}

// pointStep runs after a successful solve; returning an error fails the
// point.
type pointStep func(ctx context.Context, pr *PointResult) error

func (r *Runner) run(ctx context.Context, req Request, name string, step pointStep) (*Report, error) {
	runID := uuid.NewString()
	alg := req.Config.Algorithm
	ctx, span := r.opts.Tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("scan.run_id", runID),
			attribute.String("scan.algorithm", alg.String()),
			attribute.Int("scan.points", len(req.Points)),
		),
	)
	defer span.End()
	log := r.opts.Logger.With(slog.String("run_id", runID))

	if err := req.Config.Validate(); err != nil {
		r.finishRun(span, "failed", err)

		return nil, err
	}

	start := time.Now()
	log.Info("scan started",
		slog.String("algorithm", alg.String()),
		slog.Int("points", len(req.Points)),
		slog.Int("workers", r.opts.Workers),
	)

	results := make([]PointResult, len(req.Points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range req.Points {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pr := r.point(gctx, req, i, step)
			results[i] = pr
			if pr.Err != nil {
				log.Warn("scan point failed",
					slog.Int("index", i),
					slog.Float64("q", pr.Point.Q),
					slog.Float64("e", pr.Point.E),
					slog.String("error", pr.Err.Error()),
				)
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if r.opts.StopOnError {
					return &PointError{Index: i, Point: pr.Point, Err: pr.Err}
				}
			}

			return nil
		})
	}
	err := g.Wait()
	if ctx.Err() != nil {
		err = ctx.Err()
		r.finishRun(span, "cancelled", err)
		log.Warn("scan cancelled", slog.Duration("duration", time.Since(start)))

		return nil, err
	}
	if err != nil {
		r.finishRun(span, "failed", err)

		return nil, err
	}

	rep := &Report{RunID: runID, Algorithm: alg, Points: results, Duration: time.Since(start)}
	for _, pr := range results {
		if pr.Err != nil {
			rep.Failed++
		}
	}
	span.SetAttributes(attribute.Int("scan.failed", rep.Failed))
	r.finishRun(span, "ok", nil)
	log.Info("scan completed",
		slog.Int("points", len(results)),
		slog.Int("failed", rep.Failed),
		slog.Duration("duration", rep.Duration),
	)

	return rep, nil
}

func (r *Runner) finishRun(span trace.Span, outcome string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if r.opts.Metrics != nil {
		r.opts.Metrics.Runs.WithLabelValues(outcome).Inc()
	}
}

// point resolves, solves and post-processes point i.
func (r *Runner) point(ctx context.Context, req Request, i int, step pointStep) PointResult {
	p := req.Points[i]
	ctx, span := r.opts.Tracer.Start(ctx, "scan.point",
		trace.WithAttributes(
			attribute.Int("scan.index", i),
			attribute.Float64("scan.q", p.Q),
			attribute.Float64("scan.e", p.E),
		),
	)
	defer span.End()

	pr := PointResult{Index: i, Point: p}
	cfg := req.Config
	alg := cfg.Algorithm.String()

	pos, err := req.Fixed.Resolve(&cfg, req.K, p.Q, p.E)
	if err == nil {
		pr.Position = pos
		var opts []resolution.Option
		if r.opts.Verbose {
			opts = append(opts, resolution.WithLogger(r.opts.Logger))
		}
		start := time.Now()
		pr.Result, err = resolution.Solve(&cfg, pos, opts...)
		if r.opts.Metrics != nil {
			r.opts.Metrics.SolveDuration.WithLabelValues(alg).Observe(time.Since(start).Seconds())
		}
	}
	if err == nil && step != nil {
		err = step(ctx, &pr)
	}

	outcome := "ok"
	if err != nil {
		pr.Err = err
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Float64("scan.volume", pr.Result.Volume))
	}
	if r.opts.Metrics != nil {
		r.opts.Metrics.Points.WithLabelValues(alg, outcome).Inc()
	}

	return pr
}

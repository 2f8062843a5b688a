// SPDX-License-Identifier: MIT

package scan

import (
	"log/slog"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Options configures a Runner.
//   - Workers: maximum concurrently solved points (default GOMAXPROCS).
//   - StopOnError: abort the run on the first failed point instead of
//     skipping it.
//   - Neutrons: Monte-Carlo draws per point in Convolve (default 1000).
//   - Seed: base seed of the per-point samplers; point i uses Seed+i.
type Options struct {
	Workers     int
	StopOnError bool
	Neutrons    int
	Seed        uint64
	Logger      *slog.Logger
	Metrics     *Metrics
	Tracer      trace.Tracer
	Verbose     bool
}

// Option mutates Options.
type Option func(*Options)

// DefaultNeutrons is the default number of draws per convolved point.
const DefaultNeutrons = 1000

// WithWorkers bounds the worker pool; n < 1 keeps the default.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	}
}

// WithStopOnError makes the first failed point fatal.
func WithStopOnError() Option {
	return func(o *Options) { o.StopOnError = true }
}

// WithNeutrons sets the draws per point in Convolve; n < 1 keeps the default.
func WithNeutrons(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Neutrons = n
		}
	}
}

// WithSeed fixes the Monte-Carlo seeds.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithLogger sets the run logger. It is also handed to every solve when
// Verbose is set.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithVerboseSolves forwards the logger into each resolution solve.
func WithVerboseSolves() Option {
	return func(o *Options) { o.Verbose = true }
}

// WithMetrics records into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithTracerProvider takes the tracer from tp instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) { o.Tracer = tp.Tracer(tracerName) }
}

const tracerName = "tasreso.scan"

func defaultOptions() Options {
	return Options{
		Workers:  runtime.GOMAXPROCS(0),
		Neutrons: DefaultNeutrons,
		Logger:   slog.Default(),
		Tracer:   otel.Tracer(tracerName),
	}
}

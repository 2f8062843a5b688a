// SPDX-License-Identifier: MIT

package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of a Runner.
type Metrics struct {
	// Points counts scan points by algorithm and result (ok, failed).
	Points *prometheus.CounterVec
	// SolveDuration observes the time to solve one point.
	SolveDuration *prometheus.HistogramVec
	// Neutrons counts Monte-Carlo draws used by Convolve.
	Neutrons prometheus.Counter
	// Runs counts Run and Convolve calls by outcome (ok, failed, cancelled).
	Runs *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil reg leaves them
// unregistered, which suits tests and one-shot CLI runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Points: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tasreso_scan_points_total",
			Help: "Scan points evaluated by algorithm and result",
		}, []string{"algorithm", "result"}),
		SolveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tasreso_solve_duration_seconds",
			Help:    "Resolution solve duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10), // 1µs to ~0.26s
		}, []string{"algorithm"}),
		Neutrons: f.NewCounter(prometheus.CounterOpts{
			Name: "tasreso_convolution_neutrons_total",
			Help: "Monte-Carlo draws used in convolutions",
		}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tasreso_scan_runs_total",
			Help: "Scan runs by outcome",
		}, []string{"outcome"}),
	}
}

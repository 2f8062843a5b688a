// SPDX-License-Identifier: MIT

package scan_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/matrix"
	"github.com/katalvlaran/tasreso/resolution"
	"github.com/katalvlaran/tasreso/scan"
)

const kFix = 2.662

func request(t testing.TB, alg instrument.Algorithm, pts ...scan.Point) scan.Request {
	t.Helper()
	f := instrument.DefaultFile()
	f.Algorithm = alg.String()
	cfg, err := f.Config()
	require.NoError(t, err)
	cfg.Sample.Mosaic = 20 * instrument.ArcminToRad

	return scan.Request{Config: cfg, Fixed: instrument.FixKf, K: kFix, Points: pts}
}

func energyScan(n int) []scan.Point {
	return scan.Range{From: scan.Point{Q: 1.8}, To: scan.Point{Q: 1.8, E: 6}, Steps: n}.Expand()
}

// unreachable cannot close the scattering triangle at kf = 2.662.
var unreachable = scan.Point{Q: 20, E: 1}

func TestRun_MatchesSerialSolves(t *testing.T) {
	for _, alg := range []instrument.Algorithm{instrument.CooperNathans, instrument.Popovici, instrument.EckoldSobolev} {
		t.Run(alg.String(), func(t *testing.T) {
			req := request(t, alg, energyScan(9)...)
			rep, err := scan.NewRunner(scan.WithWorkers(4)).Run(context.Background(), req)
			require.NoError(t, err)
			require.Len(t, rep.Points, len(req.Points))
			assert.NotEmpty(t, rep.RunID)
			assert.Equal(t, alg, rep.Algorithm)
			assert.Zero(t, rep.Failed)

			for i, pr := range rep.Points {
				require.NoError(t, pr.Err)
				assert.Equal(t, i, pr.Index)
				assert.Equal(t, req.Points[i], pr.Point)

				cfg := req.Config
				pos, err := instrument.NewPositionFixedKf(&cfg, kFix, pr.Point.Q, pr.Point.E)
				require.NoError(t, err)
				want, err := resolution.Solve(&cfg, pos)
				require.NoError(t, err)
				ok, err := matrix.AllClose(want.Matrix, pr.Result.Matrix, 1e-12, 0)
				require.NoError(t, err)
				assert.True(t, ok, "point %d", i)
				assert.Equal(t, want.Volume, pr.Result.Volume)
			}
		})
	}
}

func TestRun_SkipsFailedPoints(t *testing.T) {
	pts := energyScan(4)
	pts = append(pts[:2], append([]scan.Point{unreachable}, pts[2:]...)...)
	req := request(t, instrument.CooperNathans, pts...)

	rep, err := scan.NewRunner(scan.WithWorkers(2)).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, rep.Points, 5)
	assert.Equal(t, 1, rep.Failed)
	assert.ErrorIs(t, rep.Points[2].Err, instrument.ErrGeometry)
	for _, i := range []int{0, 1, 3, 4} {
		assert.NoError(t, rep.Points[i].Err)
		assert.True(t, rep.Points[i].Result.OK)
	}
}

func TestRun_StopOnError(t *testing.T) {
	req := request(t, instrument.CooperNathans, scan.Point{Q: 1.5}, unreachable, scan.Point{Q: 2})

	rep, err := scan.NewRunner(scan.WithWorkers(1), scan.WithStopOnError()).Run(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.ErrorIs(t, err, scan.ErrPointFailed)
	assert.ErrorIs(t, err, instrument.ErrGeometry)
	var pe *scan.PointError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Index)
	assert.Equal(t, unreachable, pe.Point)
}

func TestRun_InvalidConfiguration(t *testing.T) {
	req := request(t, instrument.Popovici, energyScan(3)...)
	req.Config.Mono.Width = 0

	rep, err := scan.NewRunner().Run(context.Background(), req)
	assert.Nil(t, rep)
	assert.ErrorIs(t, err, instrument.ErrConfiguration)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := scan.NewRunner().Run(ctx, request(t, instrument.CooperNathans, energyScan(16)...))
	assert.Nil(t, rep)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyRequest(t *testing.T) {
	rep, err := scan.NewRunner().Run(context.Background(), request(t, instrument.CooperNathans))
	require.NoError(t, err)
	assert.Empty(t, rep.Points)
	assert.Zero(t, rep.Failed)
}

func TestRun_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := scan.NewMetrics(reg)
	req := request(t, instrument.CooperNathans, append(energyScan(3), unreachable)...)

	_, err := scan.NewRunner(scan.WithMetrics(m)).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Points.WithLabelValues("cn", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Points.WithLabelValues("cn", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SolveDuration))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = scan.NewRunner(scan.WithMetrics(m)).Run(ctx, req)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("cancelled")))
}

func TestRun_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	req := request(t, instrument.CooperNathans, scan.Point{Q: 1.5}, unreachable)
	rep, err := scan.NewRunner(scan.WithTracerProvider(tp)).Run(context.Background(), req)
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 3)
	var run sdktrace.ReadOnlySpan
	points := 0
	for _, s := range spans {
		switch s.Name() {
		case "scan.Run":
			run = s
		case "scan.point":
			points++
		}
	}
	require.NotNil(t, run)
	assert.Equal(t, 2, points)
	found := false
	for _, kv := range run.Attributes() {
		if kv.Key == "scan.run_id" {
			found = true
			assert.Equal(t, rep.RunID, kv.Value.AsString())
		}
	}
	assert.True(t, found)
	for _, s := range spans {
		if s.Name() == "scan.point" {
			assert.Equal(t, run.SpanContext().SpanID(), s.Parent().SpanID())
		}
	}
}

func TestRun_Logs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rep, err := scan.NewRunner(scan.WithLogger(log), scan.WithVerboseSolves()).
		Run(context.Background(), request(t, instrument.CooperNathans, scan.Point{Q: 1.5}, unreachable))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"scan started"`)
	assert.Contains(t, out, `"msg":"scan point failed"`)
	assert.Contains(t, out, `"msg":"scan completed"`)
	assert.Contains(t, out, `"msg":"resolution solved"`)
	assert.Contains(t, out, rep.RunID)
}

func TestConvolve_ConstantModelGivesR0(t *testing.T) {
	req := request(t, instrument.Popovici, energyScan(4)...)
	reg := prometheus.NewRegistry()
	m := scan.NewMetrics(reg)

	rep, err := scan.NewRunner(scan.WithNeutrons(500), scan.WithSeed(7), scan.WithMetrics(m)).
		Convolve(context.Background(), req, func([4]float64) float64 { return 1 })
	require.NoError(t, err)
	for _, pr := range rep.Points {
		require.NoError(t, pr.Err)
		assert.InDelta(t, pr.Result.R0, pr.Intensity, 1e-12*pr.Result.R0)
	}
	assert.Equal(t, 2000.0, testutil.ToFloat64(m.Neutrons))
}

func TestConvolve_GaussianModel(t *testing.T) {
	// A peak much broader than the resolution is barely attenuated.
	req := request(t, instrument.CooperNathans, scan.Point{Q: 1.8, E: 2})
	broad := func(q [4]float64) float64 {
		d := q[3] - 2
		return math.Exp(-d * d / (2 * 100))
	}

	rep, err := scan.NewRunner(scan.WithNeutrons(4000), scan.WithSeed(3)).
		Convolve(context.Background(), req, broad)
	require.NoError(t, err)
	pr := rep.Points[0]
	require.NoError(t, pr.Err)
	assert.Greater(t, pr.Intensity, 0.95*pr.Result.R0)
	assert.LessOrEqual(t, pr.Intensity, pr.Result.R0)
}

func TestConvolve_ReproducibleAcrossWorkers(t *testing.T) {
	req := request(t, instrument.EckoldSobolev, energyScan(6)...)
	model := func(q [4]float64) float64 { return q[0]*q[0] + q[3] }

	run := func(workers int) *scan.Report {
		rep, err := scan.NewRunner(scan.WithWorkers(workers), scan.WithSeed(42), scan.WithNeutrons(200)).
			Convolve(context.Background(), req, model)
		require.NoError(t, err)

		return rep
	}
	a, b := run(1), run(6)
	for i := range a.Points {
		assert.Equal(t, a.Points[i].Intensity, b.Points[i].Intensity, "point %d", i)
	}
}

func TestConvolve_CancelledInsideSampling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	model := func([4]float64) float64 {
		cancel()
		return 1
	}

	rep, err := scan.NewRunner(scan.WithWorkers(1), scan.WithNeutrons(100000)).
		Convolve(ctx, request(t, instrument.CooperNathans, energyScan(3)...), model)
	assert.Nil(t, rep)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvolve_Errors(t *testing.T) {
	req := request(t, instrument.CooperNathans, scan.Point{Q: 1.5})
	_, err := scan.NewRunner().Convolve(context.Background(), req, nil)
	assert.ErrorIs(t, err, scan.ErrNilModel)

	rep, err := scan.NewRunner(scan.WithNeutrons(10)).
		Convolve(context.Background(), req, func([4]float64) float64 { return math.NaN() })
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Error(t, rep.Points[0].Err)
}

func TestParsePlan(t *testing.T) {
	p, err := scan.ParsePlan([]byte(`
fixed: ki
k: 3
points:
  - {q: 1, e: 0.5}
range:
  from: {q: 1.5, e: 0}
  to: {q: 2.5, e: 4}
  steps: 3
`))
	require.NoError(t, err)

	df := instrument.DefaultFile()
	cfg, err := df.Config()
	require.NoError(t, err)
	req, err := p.Request(cfg)
	require.NoError(t, err)
	assert.Equal(t, instrument.FixKi, req.Fixed)
	assert.Equal(t, 3.0, req.K)
	assert.Equal(t, []scan.Point{{Q: 1, E: 0.5}, {Q: 1.5}, {Q: 2, E: 2}, {Q: 2.5, E: 4}}, req.Points)
}

func TestParsePlan_Errors(t *testing.T) {
	cases := map[string]string{
		"fixed":     "fixed: kk\nk: 2\npoints: [{q: 1}]",
		"k":         "k: 0\npoints: [{q: 1}]",
		"no points": "k: 2",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := scan.ParsePlan([]byte(doc))
			assert.ErrorIs(t, err, scan.ErrBadPlan)
		})
	}

	_, err := scan.ParsePlan([]byte("k: [1"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, scan.ErrBadPlan))
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("k: 2.662\nrange: {from: {q: 1}, to: {q: 2}, steps: 1}\n"), 0o600))

	p, err := scan.LoadPlan(path)
	require.NoError(t, err)
	df := instrument.DefaultFile()
	cfg, err := df.Config()
	require.NoError(t, err)
	req, err := p.Request(cfg)
	require.NoError(t, err)
	assert.Equal(t, instrument.FixKf, req.Fixed)
	assert.Equal(t, []scan.Point{{Q: 1}}, req.Points)

	_, err = scan.LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRangeExpand(t *testing.T) {
	assert.Nil(t, scan.Range{Steps: 0}.Expand())
	assert.Equal(t, []scan.Point{{Q: 1, E: 2}}, scan.Range{From: scan.Point{Q: 1, E: 2}, To: scan.Point{Q: 9}, Steps: 1}.Expand())
	pts := scan.Range{From: scan.Point{Q: 1}, To: scan.Point{Q: 2, E: 1}, Steps: 5}.Expand()
	require.Len(t, pts, 5)
	assert.InDelta(t, 1.25, pts[1].Q, 1e-15)
	assert.InDelta(t, 0.75, pts[3].E, 1e-15)
}

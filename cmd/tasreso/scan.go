// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/tasreso/scan"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		planPath    string
		workers     int
		stopOnError bool
		neutrons    int
		seed        uint64
		peak        []float64
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Evaluate the resolution over a YAML scan plan",
		Long: `Solve every point of a scan plan in parallel. With --peak E0,FWHM the
resolution is also convolved with a dispersionless Gaussian mode at E0 by
Monte-Carlo integration, and the intensity column is filled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := scan.LoadPlan(planPath)
			if err != nil {
				return err
			}
			cfg, err := a.instrument()
			if err != nil {
				return err
			}
			req, err := plan.Request(cfg)
			if err != nil {
				return err
			}

			opts := []scan.Option{
				scan.WithWorkers(workers),
				scan.WithNeutrons(neutrons),
				scan.WithSeed(seed),
				scan.WithLogger(a.log),
				scan.WithMetrics(scan.NewMetrics(a.reg)),
			}
			if stopOnError {
				opts = append(opts, scan.WithStopOnError())
			}
			if a.verbose {
				opts = append(opts, scan.WithVerboseSolves())
			}
			if a.tp != nil {
				opts = append(opts, scan.WithTracerProvider(a.tp))
			}
			r := scan.NewRunner(opts...)

			var rep *scan.Report
			if len(peak) > 0 {
				var model scan.Model
				if model, err = gaussianMode(peak); err != nil {
					return err
				}
				rep, err = r.Convolve(cmd.Context(), req, model)
			} else {
				rep, err = r.Run(cmd.Context(), req)
			}
			if err != nil {
				return err
			}

			return printReport(cmd.OutOrStdout(), rep, len(peak) > 0)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&planPath, "plan", "p", "", "scan plan YAML file")
	f.IntVarP(&workers, "workers", "w", 0, "parallel workers (default: GOMAXPROCS)")
	f.BoolVar(&stopOnError, "stop-on-error", false, "abort on the first failed point")
	f.IntVar(&neutrons, "neutrons", scan.DefaultNeutrons, "Monte-Carlo draws per point with --peak")
	f.Uint64Var(&seed, "seed", 1, "Monte-Carlo base seed")
	f.Float64SliceVar(&peak, "peak", nil, "convolve with a Gaussian mode: E0,FWHM (meV)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

// gaussianMode is a dispersionless excitation at E0 with unit peak height.
func gaussianMode(peak []float64) (scan.Model, error) {
	if len(peak) != 2 || !(peak[1] > 0) {
		return nil, fmt.Errorf("--peak needs E0,FWHM with FWHM > 0")
	}
	e0 := peak[0]
	sigma := peak[1] / (2 * math.Sqrt(2*math.Ln2))

	return func(q [4]float64) float64 {
		d := (q[3] - e0) / sigma
		return math.Exp(-d * d / 2)
	}, nil
}

func printReport(w io.Writer, rep *scan.Report, convolved bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "# run %s, algorithm %s, %d points, %d failed\n",
		rep.RunID, rep.Algorithm, len(rep.Points), rep.Failed)
	header := "#\tQ\tE\tvolume\tFWHM_Qpara\tFWHM_E"
	if convolved {
		header += "\tintensity"
	}
	fmt.Fprintln(tw, header)
	for _, pr := range rep.Points {
		if pr.Err != nil {
			fmt.Fprintf(tw, "%d\t%.4g\t%.4g\terror: %v\n", pr.Index, pr.Point.Q, pr.Point.E, pr.Err)

			continue
		}
		res := pr.Result
		fmt.Fprintf(tw, "%d\t%.4g\t%.4g\t%.6g\t%.6g\t%.6g", pr.Index, pr.Point.Q, pr.Point.E,
			res.Volume, res.BraggFWHM[0], res.BraggFWHM[3])
		if convolved {
			fmt.Fprintf(tw, "\t%.6g", pr.Intensity)
		}
		fmt.Fprintln(tw)
	}

	return tw.Flush()
}

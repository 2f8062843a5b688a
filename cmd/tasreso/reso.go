// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/tasreso/ellipse"
	"github.com/katalvlaran/tasreso/instrument"
	"github.com/katalvlaran/tasreso/resolution"
)

func newResoCmd(a *app) *cobra.Command {
	var pf posFlags
	cmd := &cobra.Command{
		Use:   "reso",
		Short: "Print the resolution matrix at one scattering position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, pos, err := a.solve(&pf)
			if err != nil {
				return err
			}
			printPosition(cmd.OutOrStdout(), pos)
			printResult(cmd.OutOrStdout(), res)

			return nil
		},
	}
	pf.register(cmd)

	return cmd
}

// solve loads the instrument, resolves the position and runs the solver
// selected by the configuration.
func (a *app) solve(pf *posFlags) (resolution.Result, instrument.Position, error) {
	cfg, err := a.instrument()
	if err != nil {
		return resolution.Result{}, instrument.Position{}, err
	}
	pos, err := pf.resolve(&cfg)
	if err != nil {
		return resolution.Result{}, instrument.Position{}, err
	}
	res, err := resolution.Solve(&cfg, pos, resolution.WithLogger(a.log))
	if err != nil {
		return resolution.Result{}, pos, err
	}

	return res, pos, nil
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }

func printPosition(w io.Writer, pos instrument.Position) {
	fmt.Fprintf(w, "ki = %.4f 1/A, kf = %.4f 1/A, Q = %.4f 1/A, E = %.4f meV\n", pos.Ki, pos.Kf, pos.Q, pos.E)
	fmt.Fprintf(w, "2theta_m = %.3f deg, 2theta_s = %.3f deg, 2theta_a = %.3f deg\n",
		deg(2*pos.ThetaM), deg(pos.TwoTheta), deg(2*pos.ThetaA))
}

func printResult(w io.Writer, res resolution.Result) {
	fmt.Fprintf(w, "Algorithm: %s\n", res.Algorithm)
	fmt.Fprintln(w, "Resolution matrix (Q_para, Q_perp, Q_up, E):")
	for _, line := range strings.Split(strings.TrimRight(res.Matrix.String(), "\n"), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintf(w, "Volume: %.6g meV A^-3\n", res.Volume)
	fmt.Fprintf(w, "R0: %.6g\n", res.R0)
	fmt.Fprintf(w, "Q average: %s\n", joinVec(res.QAvg[:]))
	fmt.Fprintln(w, "Bragg FWHM:")
	for i, c := range ellipse.Physical {
		fmt.Fprintf(w, "  %-16s %.6g\n", c.Label(), res.BraggFWHM[i])
	}
	if res.Algorithm == instrument.EckoldSobolev {
		fmt.Fprintf(w, "Linear: %s\n", joinVec(res.Linear[:]))
		fmt.Fprintf(w, "Constant: %.6g\n", res.Constant)
	}
}

func joinVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.6g", x)
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

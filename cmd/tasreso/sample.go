// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/tasreso/montecarlo"
)

func newSampleCmd(a *app) *cobra.Command {
	var (
		pf   posFlags
		n    int
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw Monte-Carlo (Q_para, Q_perp, Q_up, E) points from the resolution ellipsoid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n < 1 {
				return fmt.Errorf("--n must be positive, got %d", n)
			}
			res, _, err := a.solve(&pf)
			if err != nil {
				return err
			}
			form, err := res.Form()
			if err != nil {
				return err
			}
			d, err := form.Ellipsoid4D()
			if err != nil {
				return err
			}
			var opts []montecarlo.Option
			if cmd.Flags().Changed("seed") {
				opts = append(opts, montecarlo.WithSeed(seed))
			}
			s, err := montecarlo.NewSampler(d, opts...)
			if err != nil {
				return err
			}

			st := s.Sample(cmd.Context(), n)
			w := bufio.NewWriter(cmd.OutOrStdout())
			fmt.Fprintln(w, "# Q_para Q_perp Q_up E")
			for p := range st.All() {
				fmt.Fprintf(w, "%.8g %.8g %.8g %.8g\n", p[0], p[1], p[2], p[3])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			return st.Err()
		},
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&n, "n", 1000, "number of points")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (default: random)")

	return cmd
}

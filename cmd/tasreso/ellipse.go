// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/tasreso/ellipse"
)

func newEllipseCmd(a *app) *cobra.Command {
	var (
		pf     posFlags
		axes   []string
		slice  bool
		points int
	)
	cmd := &cobra.Command{
		Use:   "ellipse",
		Short: "Project or slice the resolution ellipsoid onto 2 or 3 axes",
		Long: `Reduce the 4-D resolution ellipsoid to the chosen axes. The other
coordinates are integrated out (projection) or, with --slice, fixed at
their mean (section).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keep, err := ellipse.ParseCoords(axes)
			if err != nil {
				return err
			}
			if len(keep) != 2 && len(keep) != 3 {
				return fmt.Errorf("--axes needs 2 or 3 coordinates, got %d", len(keep))
			}
			res, _, err := a.solve(&pf)
			if err != nil {
				return err
			}
			form, err := res.Form()
			if err != nil {
				return err
			}
			var rest []ellipse.Coord
			for _, c := range ellipse.Physical {
				if !slices.Contains(keep, c) {
					rest = append(rest, c)
				}
			}
			integrate, remove := rest, []ellipse.Coord(nil)
			if slice {
				integrate, remove = nil, rest
			}

			w := cmd.OutOrStdout()
			if len(keep) == 3 {
				d, err := form.Ellipsoid(keep[0], keep[1], keep[2], integrate, remove)
				if err != nil {
					return err
				}
				printDescriptor(w, d.Descriptor)
				fmt.Fprintf(w, "Volume: %.6g\n", d.Volume)

				return nil
			}

			d, err := form.Ellipse(keep[0], keep[1], integrate, remove)
			if err != nil {
				return err
			}
			printDescriptor(w, d.Descriptor)
			fmt.Fprintf(w, "Angle: %.4f deg\n", deg(d.Angle))
			fmt.Fprintf(w, "Area: %.6g\n", d.Area())
			if points > 0 {
				fmt.Fprintf(w, "Contour (%s, %s):\n", d.Labels[0], d.Labels[1])
				for _, p := range d.Points(points) {
					fmt.Fprintf(w, "  %.6g %.6g\n", p[0], p[1])
				}
			}

			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().StringSliceVar(&axes, "axes", []string{"Q_para", "E"}, "kept coordinates: Q_para, Q_perp, Q_up, E")
	cmd.Flags().BoolVar(&slice, "slice", false, "fix the other coordinates instead of integrating them")
	cmd.Flags().IntVar(&points, "points", 0, "print this many contour points (2-D only)")

	return cmd
}

func printDescriptor(w io.Writer, d ellipse.Descriptor) {
	for i, l := range d.Labels {
		fmt.Fprintf(w, "%-16s HWHM %.6g  centre %.6g\n", l, d.HWHM[i], d.Offset[i])
	}
	fmt.Fprintln(w, "Principal axes (columns):")
	for i := 0; i < d.Rotation.Rows(); i++ {
		row := make([]float64, d.Rotation.Cols())
		for j := range row {
			row[j] = d.Rotation.Value(i, j)
		}
		fmt.Fprintf(w, "  %s\n", joinVec(row))
	}
}

// Package tasreso computes the instrumental resolution of a triple-axis
// neutron spectrometer and the geometric objects derived from it.
//
// 🚀 What is tasreso?
//
//	Given an instrument description and a scattering position (ki, kf, Q, E),
//	it builds the 4×4 resolution matrix over (Q_para, Q_perp, Q_up, E) with
//	one of three models:
//		• Cooper-Nathans: point-like components, Gaussian mosaics and collimators
//		• Popovici: finite component sizes and crystal curvature
//		• Eckold-Sobolev: arm-by-arm treatment, vertical mosaics, sample offset
//
// From the matrix it derives the resolution volume and prefactor, Bragg
// widths, ellipse and ellipsoid projections or slices, Monte-Carlo points and
// scan convolutions.
//
// Packages, leaves first:
//
//	matrix/     : dense matrices, inverse, determinant, symmetric eigensolver
//	lattice/    : unit cell → B and UB, Q of (hkl), scattering-plane check
//	instrument/ : configuration, YAML files, scattering positions, units
//	ellipse/    : quadratic forms: remove, integrate, principal axes, views
//	resolution/ : the three solvers and the error taxonomy
//	montecarlo/ : non-restartable streams of resolution-distributed points
//	scan/       : parallel scan evaluation, convolution, metrics and tracing
//	cmd/tasreso : command-line front end
//
// Quick start:
//
//	f := instrument.DefaultFile()
//	cfg, _ := f.Config()
//	pos, _ := instrument.NewPositionFixedKf(&cfg, 2.662, 1.8, 2)
//	res, err := resolution.Solve(&cfg, pos)
//
// Every solver call is independent and safe for concurrent use; nothing
// reads global state.
package tasreso

// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/katalvlaran/tasreso/instrument"
)

// app holds the global flags and the per-invocation telemetry.
type app struct {
	configPath string
	algorithm  string
	verbose    bool
	metricsOut string
	trace      bool

	log *slog.Logger
	reg *prometheus.Registry
	tp  *sdktrace.TracerProvider
}

// execute runs the command line in args. Metrics and spans are flushed
// after the command returns, whether or not it failed.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.command()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if a.reg == nil {
		// setup never ran: bad flags or a help request
		return err
	}

	return errors.Join(err, a.teardown(ctx))
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:          "tasreso",
		Short:        "Triple-axis spectrometer resolution calculator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "instrument YAML file (default: built-in thermal spectrometer)")
	pf.StringVarP(&a.algorithm, "algorithm", "a", "", "override the file's algorithm: cn, pop or eck")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")
	pf.StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus metrics in text format to this file on exit")
	pf.BoolVar(&a.trace, "trace", false, "print trace spans on stderr")

	root.AddCommand(
		newResoCmd(a),
		newEllipseCmd(a),
		newSampleCmd(a),
		newScanCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.reg = prometheus.NewRegistry()

	if a.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		a.tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	}

	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.tp != nil {
		if err := a.tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("trace shutdown: %w", err)
		}
	}
	if a.metricsOut == "" {
		return nil
	}

	return a.writeMetrics()
}

func (a *app) writeMetrics() error {
	mfs, err := a.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	f, err := os.Create(a.metricsOut)
	if err != nil {
		return fmt.Errorf("metrics file: %w", err)
	}
	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			f.Close()

			return fmt.Errorf("encode metrics: %w", err)
		}
	}

	return f.Close()
}

// instrument loads the configuration named by the global flags.
func (a *app) instrument() (instrument.Config, error) {
	f := instrument.DefaultFile()
	if a.configPath != "" {
		var err error
		if f, err = instrument.LoadFile(a.configPath); err != nil {
			return instrument.Config{}, err
		}
	}
	if a.algorithm != "" {
		f.Algorithm = a.algorithm
		if err := f.Validate(); err != nil {
			return instrument.Config{}, err
		}
	}
	a.log.Debug("instrument loaded",
		slog.String("path", a.configPath),
		slog.String("algorithm", f.Algorithm),
	)

	return f.Config()
}

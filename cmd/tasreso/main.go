// SPDX-License-Identifier: MIT

// Command tasreso computes triple-axis spectrometer resolution from a YAML
// instrument file.
//
//	tasreso reso    --q 1.8 -e 2
//	tasreso ellipse --q 1.8 -e 2 --axes Q_para,E
//	tasreso sample  --q 1.8 -e 2 --n 1000 --seed 1
//	tasreso scan    --plan plan.yaml --workers 8
//
// Every command reads the instrument from --config (a built-in thermal
// spectrometer when omitted).
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// SPDX-License-Identifier: MIT

package resolution

import "log/slog"

// Options configures a single solve. Nothing in Options influences the
// numbers; it only controls diagnostics.
type Options struct {
	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithLogger routes debug diagnostics of the solve to l. A nil logger (the
// default) keeps the solve silent.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func gatherOptions(opts ...Option) Options {
	var o Options
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	return o
}

package compute

import "log/slog"

// Option configures a Session during creation.
//
// Example:
//
//	s, err := compute.NewSession("vulkan", src, "main",
//	    compute.WithLabel("invert"),
//	    compute.WithLogger(slog.Default()),
//	)
type Option func(*options)

// options holds optional configuration for Session creation.
type options struct {
	label  string
	logger *slog.Logger
}

// defaultOptions returns the default session options.
func defaultOptions() options {
	return options{
		label:  "compute",
		logger: nil, // Falls back to the package logger
	}
}

// WithLabel sets the debug label prefix used for every device object the
// session creates (shader, buffers, layouts, pipeline).
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

// WithLogger sets a session-specific logger. Without it the session logs
// through the package logger configured by [SetLogger].
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

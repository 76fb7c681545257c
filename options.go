package ipc

import (
	"io"
	"log/slog"
	"time"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = NopLogger()
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTimeout sets how long a dispatch waits for its reply.
// Defaults to 2000ms, or WARP_DISPATCH_TIMEOUT_MS when set.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithIDGenerator replaces the random UUID reply channel ids.
func WithIDGenerator(gen func() string) Option {
	return func(o *Options) {
		o.IDGenerator = gen
	}
}

// WithHostname sets the host an extension dials. Defaults to 127.0.0.1.
func WithHostname(hostname string) Option {
	return func(o *Options) {
		o.Hostname = hostname
	}
}

// WithStdin sets where an extension reads its bootstrap record.
// Defaults to os.Stdin.
func WithStdin(r io.Reader) Option {
	return func(o *Options) {
		o.Stdin = r
	}
}

// WithExitFunc replaces os.Exit for Serve.
func WithExitFunc(exit func(code int)) Option {
	return func(o *Options) {
		o.Exit = exit
	}
}

// WithConn injects an extension connection instead of dialing the host.
func WithConn(conn Conn) Option {
	return func(o *Options) {
		o.Conn = conn
	}
}

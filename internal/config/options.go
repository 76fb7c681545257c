package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultDispatchTimeout is how long a call waits for its reply.
	DefaultDispatchTimeout = 2000 * time.Millisecond

	// DefaultHostname is the host an extension dials when none is given.
	DefaultHostname = "127.0.0.1"

	// dispatchTimeoutEnv overrides DefaultDispatchTimeout, in milliseconds.
	dispatchTimeoutEnv = "WARP_DISPATCH_TIMEOUT_MS"
)

// Options configures callers and extension listeners.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Timeout is the per-call reply window.
	// If zero, DispatchTimeout() is used.
	Timeout time.Duration

	// IDGenerator produces reply channel ids.
	// If nil, random UUIDs are used.
	IDGenerator func() string

	// Hostname is the broker host an extension dials.
	// If empty, DefaultHostname is used.
	Hostname string

	// Stdin supplies the bootstrap record to an extension.
	// If nil, os.Stdin is read.
	Stdin io.Reader

	// Exit terminates the extension process after its connection closes.
	// If nil, os.Exit is used.
	Exit func(code int)

	// Conn allows injecting a custom extension connection.
	// If nil, the extension dials the host over WebSocket.
	Conn Conn `json:"-"`
}

// DispatchTimeout returns the reply window from the environment or the default.
func DispatchTimeout() time.Duration {
	if msStr := os.Getenv(dispatchTimeoutEnv); msStr != "" {
		if ms, err := strconv.Atoi(msStr); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}

	return DefaultDispatchTimeout
}

// EffectiveTimeout returns the configured timeout or the environment default.
func (o *Options) EffectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}

	return DispatchTimeout()
}

// EffectiveHostname returns the configured hostname or DefaultHostname.
func (o *Options) EffectiveHostname() string {
	if o.Hostname != "" {
		return o.Hostname
	}

	return DefaultHostname
}

package ipc

import (
	"context"

	"github.com/warp-js/ipc-server/internal/dispatch"
)

// NewCaller creates a Caller over transport.
func NewCaller(transport Transport, opts ...Option) *Caller {
	options := applyOptions(opts)

	return dispatch.NewCaller(options.Logger, transport, options)
}

// Dispatch sends event with payload to target and waits for its reply.
//
// It fails immediately with an ExtensionStateError if target is not
// connected, and with ErrDispatchTimeout if no reply arrives in time.
// Cancelling ctx abandons the call.
func Dispatch(ctx context.Context, transport Transport, target, event string, payload any, opts ...Option) (*Envelope, error) {
	return NewCaller(transport, opts...).Dispatch(ctx, target, event, payload)
}

// NewDispatcher returns a dispatch function bound to target.
func NewDispatcher(transport Transport, target string, opts ...Option) DispatchFunc {
	return NewCaller(transport, opts...).Dispatcher(target)
}

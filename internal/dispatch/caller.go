package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/warp-js/ipc-server/internal/config"
	"github.com/warp-js/ipc-server/internal/errors"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// DispatchFunc sends an event to a fixed target extension.
type DispatchFunc func(ctx context.Context, event string, payload any) (*protocol.Envelope, error)

// Caller dispatches events to extensions and correlates their replies.
//
// A Caller holds no per-call state; it is safe for concurrent use and any
// number of calls may be outstanding at once.
type Caller struct {
	log       *slog.Logger
	transport config.Transport
	timeout   time.Duration
	newID     func() string
}

// NewCaller creates a caller over transport.
//
// The reply window comes from opts.Timeout, the WARP_DISPATCH_TIMEOUT_MS
// environment variable, or 2000ms, in that order.
func NewCaller(log *slog.Logger, transport config.Transport, opts *config.Options) *Caller {
	if opts == nil {
		opts = &config.Options{}
	}

	newID := opts.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}

	return &Caller{
		log:       log.With("component", "dispatch"),
		transport: transport,
		timeout:   opts.EffectiveTimeout(),
		newID:     newID,
	}
}

// Timeout returns the per-call reply window.
func (c *Caller) Timeout() time.Duration {
	return c.timeout
}

// Go starts a call and returns without waiting for the reply.
//
// A target that is not connected is rejected immediately with an
// ExtensionStateError; no subscription, timer or send happens in that case.
// A send failure also returns an error, after the call has been torn down.
func (c *Caller) Go(ctx context.Context, target, event string, payload any) (*Call, error) {
	call := newCall(c.log, c.transport, c.newID(), target, event, c.timeout)

	stats, err := c.transport.ConnectionStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("connection stats: %w", err)
	}

	if !stats.IsConnected(target) {
		stateErr := &errors.ExtensionStateError{Extension: target, Loaded: stats.IsLoaded(target)}
		call.log.Warn("Dispatch rejected", "error", stateErr)

		return nil, stateErr
	}

	req, err := protocol.NewRequest(call.ReplyChannelName, payload)
	if err != nil {
		return nil, err
	}

	call.Payload = req.Data

	call.arm()

	if err := c.transport.SendToTarget(ctx, target, event, req); err != nil {
		sendErr := fmt.Errorf("send to %s: %w", target, err)
		call.reject(sendErr)
		call.log.Error("Failed to send dispatch", "error", err)

		return nil, sendErr
	}

	call.log.Debug("Dispatch sent, waiting for reply", "timeout", c.timeout)

	return call, nil
}

// Dispatch sends event to target and blocks until the reply arrives, the
// reply window elapses, or ctx is cancelled.
//
// The returned envelope's Event is the call's reply channel name and its
// Data is whatever the extension sent.
func (c *Caller) Dispatch(ctx context.Context, target, event string, payload any) (*protocol.Envelope, error) {
	call, err := c.Go(ctx, target, event, payload)
	if err != nil {
		return nil, err
	}

	return call.Wait(ctx)
}

// Dispatcher binds target and returns a two-argument dispatch function.
func (c *Caller) Dispatcher(target string) DispatchFunc {
	return func(ctx context.Context, event string, payload any) (*protocol.Envelope, error) {
		return c.Dispatch(ctx, target, event, payload)
	}
}

// Package config provides configuration types and collaborator interfaces
// for extension dispatch.
package config

import (
	"context"
	"encoding/json"

	"github.com/warp-js/ipc-server/internal/protocol"
)

// Transport defines the caller-side view of the host broker.
// Implement this to provide custom transports for testing, mocking,
// or alternative hosts.
//
// The default implementation is broker.Hub, which routes calls to
// extensions connected over WebSocket.
type Transport interface {
	// ConnectionStats returns the loaded and connected extension sets.
	// It is queried before every dispatch.
	ConnectionStats(ctx context.Context) (*protocol.Stats, error)

	// Subscribe registers handler for envelopes published on event and
	// returns the token needed to remove it.
	// Handlers must be invoked without holding transport locks, so a
	// handler may call Unsubscribe.
	Subscribe(event string, handler protocol.EventHandler) protocol.Subscription

	// Unsubscribe removes a registration. Unknown tokens are ignored.
	Unsubscribe(event string, sub protocol.Subscription)

	// SendToTarget delivers a call envelope to one extension.
	// Delivery is fire-and-forget; there is no acknowledgment.
	SendToTarget(ctx context.Context, target, event string, req *protocol.Request) error
}

// Conn defines the extension-side connection to the host broker.
//
// The default implementation dials the host over WebSocket.
type Conn interface {
	// ReadMessages returns channels for receiving raw frames and errors.
	// The message channel is closed when the connection closes.
	// Errors on the error channel are not fatal by themselves.
	ReadMessages(ctx context.Context) (<-chan []byte, <-chan error)

	// SendAuthenticated publishes payload under event using the
	// extension's access token. This method must be safe for concurrent use.
	SendAuthenticated(ctx context.Context, accessToken, event string, payload json.RawMessage) error

	// Close terminates the connection. It's safe to call Close multiple times.
	Close() error
}

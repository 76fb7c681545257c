package ipc

import "github.com/warp-js/ipc-server/internal/errors"

// Re-export error types from internal package

// ExtensionStateError indicates the target extension is not connected.
type ExtensionStateError = errors.ExtensionStateError

// ConstructionError indicates an extension failed to start.
type ConstructionError = errors.ConstructionError

// BootstrapError indicates the bootstrap record on stdin is missing or malformed.
type BootstrapError = errors.BootstrapError

// EnvelopeDecodeError indicates an inbound frame could not be decoded.
type EnvelopeDecodeError = errors.EnvelopeDecodeError

// IPCError is the base interface for all typed errors in this package.
type IPCError = errors.IPCError

// Re-export sentinel errors from internal package.
var (
	// ErrDispatchTimeout indicates no reply arrived within the dispatch window.
	ErrDispatchTimeout = errors.ErrDispatchTimeout

	// ErrLoadedNotConnected indicates the target is loaded but has no connection.
	ErrLoadedNotConnected = errors.ErrLoadedNotConnected

	// ErrNotLoadedNotConnected indicates the target is neither loaded nor connected.
	ErrNotLoadedNotConnected = errors.ErrNotLoadedNotConnected

	// ErrConnectionClosed indicates the extension's host connection closed.
	ErrConnectionClosed = errors.ErrConnectionClosed

	// ErrDuplicateHandler indicates two handlers were registered for one event.
	ErrDuplicateHandler = errors.ErrDuplicateHandler

	// ErrInvalidHandler indicates a handler with no event name or no function.
	ErrInvalidHandler = errors.ErrInvalidHandler

	// ErrNoHandlers indicates an extension was started without handlers.
	ErrNoHandlers = errors.ErrNoHandlers

	// ErrUnauthorized indicates a wrong connect or access token.
	ErrUnauthorized = errors.ErrUnauthorized

	// ErrUnknownExtension indicates an extension id the host never loaded.
	ErrUnknownExtension = errors.ErrUnknownExtension
)

package errors

import (
	"errors"
	"fmt"
)

// IPCError is the base interface for all dispatch errors.
type IPCError interface {
	error
	IsIPCError() bool
}

// Compile-time verification that all error types implement IPCError.
var (
	_ IPCError = (*ExtensionStateError)(nil)
	_ IPCError = (*ConstructionError)(nil)
	_ IPCError = (*BootstrapError)(nil)
	_ IPCError = (*EnvelopeDecodeError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrDispatchTimeout indicates no reply arrived within the dispatch window.
	ErrDispatchTimeout = errors.New("dispatch timeout")

	// ErrLoadedNotConnected indicates the target is loaded but has no connection.
	ErrLoadedNotConnected = errors.New("extension is loaded but isn't connected")

	// ErrNotLoadedNotConnected indicates the target is neither loaded nor connected.
	ErrNotLoadedNotConnected = errors.New("extension isn't loaded and connected")

	// ErrConnectionClosed indicates the extension's broker connection closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrDuplicateHandler indicates two handlers were registered for one event.
	ErrDuplicateHandler = errors.New("duplicate handler")

	// ErrInvalidHandler indicates a handler registration with no event or no function.
	ErrInvalidHandler = errors.New("invalid handler")

	// ErrNoHandlers indicates a listener was built with an empty handler table.
	ErrNoHandlers = errors.New("no handlers registered")

	// ErrUnauthorized indicates a frame carried a wrong access token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnknownExtension indicates an extension id the host never loaded.
	ErrUnknownExtension = errors.New("unknown extension")

	// ErrUnknownMethod indicates a frame method the host does not implement.
	ErrUnknownMethod = errors.New("unknown method")
)

// ExtensionStateError indicates a dispatch was rejected because the target
// extension is not connected. Loaded distinguishes the two rejections of the
// dispatch decision table.
type ExtensionStateError struct {
	Extension string
	Loaded    bool
}

func (e *ExtensionStateError) Error() string {
	if e.Loaded {
		return fmt.Sprintf("extension {%s} is loaded but isn't connected", e.Extension)
	}

	return fmt.Sprintf("extension {%s} isn't loaded and connected", e.Extension)
}

// Is matches ErrLoadedNotConnected or ErrNotLoadedNotConnected.
func (e *ExtensionStateError) Is(target error) bool {
	if e.Loaded {
		return target == ErrLoadedNotConnected
	}

	return target == ErrNotLoadedNotConnected
}

// IsIPCError implements IPCError.
func (e *ExtensionStateError) IsIPCError() bool { return true }

// ConstructionError indicates the extension listener failed to start.
// The listener never partially starts: nothing is left running when this
// error is returned.
type ConstructionError struct {
	ExtensionID string
	Err         error
}

func (e *ConstructionError) Error() string {
	if e.ExtensionID == "" {
		return fmt.Sprintf("failed to start extension: %v", e.Err)
	}

	return fmt.Sprintf("failed to start extension %s: %v", e.ExtensionID, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// IsIPCError implements IPCError.
func (e *ConstructionError) IsIPCError() bool { return true }

// BootstrapError indicates the startup record supplied by the launching
// process is missing or malformed.
type BootstrapError struct {
	Err error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("invalid bootstrap record: %v", e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// IsIPCError implements IPCError.
func (e *BootstrapError) IsIPCError() bool { return true }

// EnvelopeDecodeError indicates an inbound frame could not be decoded.
// This error preserves the original raw data that failed to parse.
type EnvelopeDecodeError struct {
	RawData string
	Err     error
}

func (e *EnvelopeDecodeError) Error() string {
	return fmt.Sprintf("failed to decode envelope: %v", e.Err)
}

func (e *EnvelopeDecodeError) Unwrap() error {
	return e.Err
}

// IsIPCError implements IPCError.
func (e *EnvelopeDecodeError) IsIPCError() bool { return true }

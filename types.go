package ipc

import (
	"github.com/warp-js/ipc-server/internal/config"
	"github.com/warp-js/ipc-server/internal/dispatch"
	"github.com/warp-js/ipc-server/internal/extension"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// Options configures callers and extensions.
type Options = config.Options

// Envelope is the {event, data} message exchanged in both directions.
type Envelope = protocol.Envelope

// Request is the data of an inbound call: the caller's payload and the
// reply channel to answer on.
type Request = protocol.Request

// Stats lists loaded and connected extensions.
type Stats = protocol.Stats

// Identity is an extension's port, token and id.
type Identity = protocol.Identity

// EventHandler receives envelopes published on a subscribed event.
type EventHandler = protocol.EventHandler

// Subscription identifies one Subscribe registration.
type Subscription = protocol.Subscription

// Bootstrap is the record a host writes to an extension's stdin.
type Bootstrap = config.Bootstrap

// HandlerFunc handles one inbound event on the extension side.
type HandlerFunc = extension.HandlerFunc

// Response answers an inbound request.
type Response = extension.Response

// Route binds an event name to a handler.
type Route = extension.Route

// Caller dispatches events and correlates replies.
type Caller = dispatch.Caller

// Call is an in-flight dispatch.
type Call = dispatch.Call

// CallState is the settlement of a Call.
type CallState = dispatch.State

// Call settlement states.
const (
	CallPending  = dispatch.StatePending
	CallResolved = dispatch.StateResolved
	CallRejected = dispatch.StateRejected
)

// DispatchFunc sends an event to a fixed target.
type DispatchFunc = dispatch.DispatchFunc

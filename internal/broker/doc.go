// Package broker is the host side of the extension connection: a Hub that
// tracks which extensions are loaded and connected and routes envelopes
// between them, and a WebSocket Server extensions dial into.
//
// Hub implements the caller transport, so a dispatch.Caller built over a Hub
// reaches extensions connected to the same process.
package broker

// Package extension implements the listener side of a dispatch: it reads
// envelopes from the host connection, routes them to registered handlers by
// event name and sends handler replies back on the caller's reply channel.
package extension

// Package host loads the host manifest and launches extension processes.
//
// Each extension is registered with the broker before it starts and receives
// its bootstrap record on stdin: the broker port, its extension id, the
// connect token it must dial with and the access token it signs frames with.
package host

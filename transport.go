package ipc

import "github.com/warp-js/ipc-server/internal/config"

// Transport is the caller's view of the host broker: connection stats, a
// publish/subscribe table and targeted sends. Hub implements it; custom
// implementations can be injected for testing.
type Transport = config.Transport

// Conn is an extension's connection to the host. The default dials the host
// over WebSocket; custom connections can be injected with WithConn.
type Conn = config.Conn

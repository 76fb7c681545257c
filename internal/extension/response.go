package extension

import (
	"context"

	"github.com/warp-js/ipc-server/internal/config"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// Response sends replies for one inbound request.
type Response struct {
	conn    config.Conn
	token   string
	channel string
}

func newResponse(conn config.Conn, token, channel string) *Response {
	return &Response{conn: conn, token: token, channel: channel}
}

// Channel returns the reply channel name this response publishes on.
func (r *Response) Channel() string {
	return r.channel
}

// Send publishes payload on the reply channel. Only the first reply settles
// the caller; later sends reach the broker but the caller ignores them.
func (r *Response) Send(ctx context.Context, payload any) error {
	env, err := protocol.NewEnvelope(r.channel, payload)
	if err != nil {
		return err
	}

	return r.conn.SendAuthenticated(ctx, r.token, env.Event, env.Data)
}

package extension

import (
	"context"
	"encoding/json"
	"sync"
)

// sentFrame records one SendAuthenticated call.
type sentFrame struct {
	token   string
	event   string
	payload json.RawMessage
}

// fakeConn implements config.Conn for testing.
type fakeConn struct {
	messages chan []byte
	errs     chan error

	mu      sync.Mutex
	sent    []sentFrame
	sendErr error
	closed  bool
	sentCh  chan sentFrame
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		messages: make(chan []byte, 16),
		errs:     make(chan error, 16),
		sentCh:   make(chan sentFrame, 16),
	}
}

func (c *fakeConn) ReadMessages(_ context.Context) (<-chan []byte, <-chan error) {
	return c.messages, c.errs
}

func (c *fakeConn) SendAuthenticated(_ context.Context, token, event string, payload json.RawMessage) error {
	c.mu.Lock()

	if c.sendErr != nil {
		c.mu.Unlock()

		return c.sendErr
	}

	frame := sentFrame{token: token, event: event, payload: payload}
	c.sent = append(c.sent, frame)

	c.mu.Unlock()

	c.sentCh <- frame

	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

func (c *fakeConn) sentFrames() []sentFrame {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]sentFrame, len(c.sent))
	copy(result, c.sent)

	return result
}

// push queues an inbound envelope {event, {chanel, data}}.
func (c *fakeConn) push(event, channel, data string) {
	raw, _ := json.Marshal(map[string]any{
		"event": event,
		"data": map[string]any{
			"chanel": channel,
			"data":   json.RawMessage(data),
		},
	})

	c.messages <- raw
}

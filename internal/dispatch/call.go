package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warp-js/ipc-server/internal/config"
	"github.com/warp-js/ipc-server/internal/errors"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// State is the settlement of a Call.
type State int

const (
	// StatePending means neither a reply nor a failure has arrived.
	StatePending State = iota
	// StateResolved means the reply arrived first.
	StateResolved
	// StateRejected means the call failed or timed out first.
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Call is an in-flight dispatch to one extension.
type Call struct {
	ReplyChannelID   string
	ReplyChannelName string
	Target           string
	Event            string
	Payload          json.RawMessage

	log       *slog.Logger
	transport config.Transport
	timeout   time.Duration

	mu    sync.Mutex
	state State
	reply *protocol.Envelope
	err   error
	sub   protocol.Subscription
	armed bool
	timer *time.Timer
	done  chan struct{}
}

func newCall(log *slog.Logger, transport config.Transport, id, target, event string, timeout time.Duration) *Call {
	name := protocol.ReplyChannelName(id, event)

	return &Call{
		ReplyChannelID:   id,
		ReplyChannelName: name,
		Target:           target,
		Event:            event,
		log:              log.With("target", target, "event", event, "reply_channel", name),
		transport:        transport,
		timeout:          timeout,
		done:             make(chan struct{}),
	}
}

// Done returns a channel that is closed when the call settles.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// State returns the current settlement.
func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Result returns the reply or the failure. It is only meaningful after Done
// is closed; before that it returns (nil, nil).
func (c *Call) Result() (*protocol.Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reply, c.err
}

// Wait blocks until the call settles. Cancelling ctx rejects a pending call
// with ctx.Err(); it does not affect a call that already settled.
func (c *Call) Wait(ctx context.Context) (*protocol.Envelope, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		if c.reject(ctx.Err()) {
			c.log.Debug("Dispatch cancelled by caller")
		}
	}

	return c.Result()
}

// arm subscribes on the reply channel and starts the timeout.
// The lock keeps an early reply from settling before both exist.
func (c *Call) arm() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sub = c.transport.Subscribe(c.ReplyChannelName, c.onReply)
	c.armed = true
	c.timer = time.AfterFunc(c.timeout, c.onTimeout)
}

func (c *Call) onReply(env *protocol.Envelope) {
	if c.resolve(env) {
		c.log.Debug("Received dispatch reply")

		return
	}

	c.log.Debug("Ignoring reply for settled call")
}

func (c *Call) onTimeout() {
	if c.reject(fmt.Errorf("%w %dms", errors.ErrDispatchTimeout, c.timeout.Milliseconds())) {
		c.log.Warn("Dispatch timed out", "timeout", c.timeout)
	}
}

func (c *Call) resolve(env *protocol.Envelope) bool {
	return c.settle(StateResolved, env, nil)
}

func (c *Call) reject(err error) bool {
	return c.settle(StateRejected, nil, err)
}

// settle records the first outcome and tears the call down. It reports
// whether this attempt won; every later attempt is a no-op.
func (c *Call) settle(state State, env *protocol.Envelope, err error) bool {
	c.mu.Lock()

	if c.state != StatePending {
		c.mu.Unlock()

		return false
	}

	c.state = state
	c.reply = env
	c.err = err

	timer, sub, armed := c.timer, c.sub, c.armed

	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}

	if armed {
		c.transport.Unsubscribe(c.ReplyChannelName, sub)
	}

	close(c.done)

	return true
}

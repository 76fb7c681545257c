package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/warp-js/ipc-server/internal/config"
	"github.com/warp-js/ipc-server/internal/errors"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// Listener routes envelopes from a host connection to handlers.
//
// Each handler runs in its own goroutine so a slow handler never stalls the
// read loop. Run waits for in-flight handlers before it returns.
type Listener struct {
	log    *slog.Logger
	conn   config.Conn
	token  string
	routes *Routes

	wg sync.WaitGroup
}

// NewListener creates a listener that answers with token on conn.
func NewListener(log *slog.Logger, conn config.Conn, token string, routes *Routes) *Listener {
	return &Listener{
		log:    log.With("component", "listener"),
		conn:   conn,
		token:  token,
		routes: routes,
	}
}

// Run reads messages until the connection closes or ctx is cancelled.
//
// Decode and transport errors are logged and the loop keeps going. A closed
// connection returns ErrConnectionClosed; a cancelled context returns
// ctx.Err().
func (l *Listener) Run(ctx context.Context) error {
	l.log.Debug("Starting listener", "events", l.routes.Events())

	messages, errs := l.conn.ReadMessages(ctx)

	defer l.wg.Wait()

	for {
		select {
		case raw, ok := <-messages:
			if !ok {
				l.log.Info("Close")

				return errors.ErrConnectionClosed
			}

			l.handleMessage(ctx, raw)

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			if err != nil {
				l.log.Error("Connection error", "error", err)
			}

		case <-ctx.Done():
			l.log.Debug("Context cancelled in listener read loop")

			return ctx.Err()
		}
	}
}

// handleMessage decodes an envelope and starts its handler.
func (l *Listener) handleMessage(ctx context.Context, raw []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		l.log.Error("Dropping message", "error", &errors.EnvelopeDecodeError{RawData: string(raw), Err: err})

		return
	}

	handler, ok := l.routes.Lookup(env.Event)
	if !ok {
		l.log.Debug("No handler for event", "event", env.Event)

		return
	}

	var req protocol.Request
	if err := json.Unmarshal(env.Data, &req); err != nil {
		decodeErr := &errors.EnvelopeDecodeError{
			RawData: string(env.Data),
			Err:     fmt.Errorf("request for %q: %w", env.Event, err),
		}
		l.log.Error("Dropping message", "error", decodeErr)

		return
	}

	res := newResponse(l.conn, l.token, req.Chanel)

	l.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				l.log.Error("Handler panicked", "event", env.Event, "panic", r)
			}
		}()

		handler(ctx, &req, res)
	})
}

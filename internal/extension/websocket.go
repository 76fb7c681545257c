package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/warp-js/ipc-server/internal/config"
	"github.com/warp-js/ipc-server/internal/protocol"
)

const closeGracePeriod = time.Second

// Compile-time verification that WebSocketConn implements config.Conn.
var _ config.Conn = (*WebSocketConn)(nil)

// WebSocketConn is the extension's connection to the host broker.
type WebSocketConn struct {
	log *slog.Logger
	ws  *websocket.Conn

	writeMu   sync.Mutex
	readOnce  sync.Once
	closeOnce sync.Once
	closing   atomic.Bool
	closeErr  error
}

// ConnectURL builds the broker URL an extension dials.
func ConnectURL(hostname string, port int, extensionID, connectToken string) string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(hostname, strconv.Itoa(port)),
		Path:   "/",
		RawQuery: url.Values{
			protocol.QueryExtensionID:  []string{extensionID},
			protocol.QueryConnectToken: []string{connectToken},
		}.Encode(),
	}

	return u.String()
}

// Dial connects to the host broker at rawURL.
func Dial(ctx context.Context, log *slog.Logger, rawURL string) (*WebSocketConn, error) {
	log = log.With("component", "websocket")
	log.Debug("Dialing host", "url", rawURL)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, fmt.Errorf("dial host: %w (status %d)", err, resp.StatusCode)
		}

		return nil, fmt.Errorf("dial host: %w", err)
	}

	log.Info("Connected to host")

	return &WebSocketConn{log: log, ws: ws}, nil
}

// ReadMessages starts the read pump. Only the first call starts it; later
// calls return nil channels.
//
// The message channel is closed when the connection ends. An abnormal end is
// reported on the error channel first.
func (c *WebSocketConn) ReadMessages(ctx context.Context) (<-chan []byte, <-chan error) {
	var (
		messages chan []byte
		errs     chan error
	)

	c.readOnce.Do(func() {
		messages = make(chan []byte, 16)
		errs = make(chan error, 1)

		go c.readPump(ctx, messages, errs)
	})

	return messages, errs
}

func (c *WebSocketConn) readPump(ctx context.Context, messages chan<- []byte, errs chan<- error) {
	defer close(messages)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!c.closing.Load() {
				errs <- fmt.Errorf("read: %w", err)
			}

			return
		}

		select {
		case messages <- data:
		case <-ctx.Done():
			return
		}
	}
}

// SendAuthenticated publishes {event, data} to the host as an app.broadcast
// frame carrying accessToken.
func (c *WebSocketConn) SendAuthenticated(
	ctx context.Context,
	accessToken, event string,
	payload json.RawMessage,
) error {
	envData, err := json.Marshal(&protocol.Envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	frame, err := json.Marshal(&protocol.Frame{
		ID:          uuid.NewString(),
		Method:      protocol.MethodBroadcast,
		AccessToken: accessToken,
		Data:        envData,
	})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
		defer func() { _ = c.ws.SetWriteDeadline(time.Time{}) }()
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	c.log.Debug("Sent frame", "event", event)

	return nil
}

// Close sends a close frame and closes the socket. It is safe to call more
// than once.
func (c *WebSocketConn) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)

		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod),
		)
		c.writeMu.Unlock()

		c.closeErr = c.ws.Close()
	})

	return c.closeErr
}

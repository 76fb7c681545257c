package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/warp-js/ipc-server/internal/protocol"
)

const (
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server accepts extension connections and feeds their frames to a Hub.
type Server struct {
	log      *slog.Logger
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer creates a WebSocket server for hub.
func NewServer(log *slog.Logger, hub *Hub) *Server {
	return &Server{
		log: log.With("component", "server"),
		hub: hub,
	}
}

// ServeHTTP authorizes and upgrades one extension connection, then reads its
// frames until it disconnects. Bad credentials get 403 before the upgrade.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	extensionID := query.Get(protocol.QueryExtensionID)
	connectToken := query.Get(protocol.QueryConnectToken)

	if err := s.hub.Authorize(extensionID, connectToken); err != nil {
		s.log.Warn("Rejected connection", "extension", extensionID, "error", err)
		http.Error(w, "forbidden", http.StatusForbidden)

		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "extension", extensionID, "error", err)

		return
	}

	peer := &wsPeer{ws: ws}

	if err := s.hub.Attach(extensionID, connectToken, peer); err != nil {
		s.log.Warn("Attach failed", "extension", extensionID, "error", err)
		_ = peer.Close()

		return
	}

	defer func() {
		s.hub.Detach(extensionID, peer)
		_ = peer.Close()
	}()

	log := s.log.With("extension", extensionID)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Read loop ended", "error", err)
			}

			return
		}

		if err := s.hub.HandleFrame(r.Context(), extensionID, data); err != nil {
			log.Warn("Dropping frame", "error", err)
		}
	}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// and disconnects every extension.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: writeTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("Listening", "addr", ln.Addr().String())

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Hijacked WebSocket connections are not closed by Shutdown.
		s.hub.Close()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// wsPeer serializes writes to one extension connection.
type wsPeer struct {
	ws *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (p *wsPeer) Send(ctx context.Context, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}

	_ = p.ws.SetWriteDeadline(deadline)

	if err := p.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

func (p *wsPeer) Close() error {
	var err error

	p.closeOnce.Do(func() {
		_ = p.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = p.ws.Close()
	})

	return err
}

package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/warp-js/ipc-server/internal/config"
	"github.com/warp-js/ipc-server/internal/errors"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// Compile-time verification that Hub implements config.Transport.
var _ config.Transport = (*Hub)(nil)

// Peer is one connected extension as seen by the hub.
type Peer interface {
	Send(ctx context.Context, data []byte) error
	Close() error
}

// Hub is the host's routing table.
//
// An extension is loaded once Register issues it a connect token and
// connected while a Peer is attached. Subscribers receive envelopes that
// extensions broadcast; SendToTarget writes to a single peer.
type Hub struct {
	log   *slog.Logger
	token string

	mu     sync.RWMutex
	loaded map[string]string
	peers  map[string]Peer

	subsMu sync.RWMutex
	subs   map[string]map[protocol.Subscription]protocol.EventHandler
}

// NewHub creates a hub. Extensions must present token on every broadcast;
// an empty token generates a random one.
func NewHub(log *slog.Logger, token string) *Hub {
	if token == "" {
		token = ulid.Make().String()
	}

	return &Hub{
		log:    log.With("component", "hub"),
		token:  token,
		loaded: make(map[string]string, 8),
		peers:  make(map[string]Peer, 8),
		subs:   make(map[string]map[protocol.Subscription]protocol.EventHandler, 16),
	}
}

// Token returns the access token extensions authenticate broadcasts with.
func (h *Hub) Token() string {
	return h.token
}

// Register marks an extension loaded and returns the connect token it must
// present when dialing. Registering again rotates the token.
func (h *Hub) Register(extensionID string) string {
	connectToken := ulid.Make().String()

	h.mu.Lock()
	h.loaded[extensionID] = connectToken
	h.mu.Unlock()

	h.log.Debug("Registered extension", "extension", extensionID)

	return connectToken
}

// Unregister forgets an extension and closes its connection, if any.
func (h *Hub) Unregister(extensionID string) {
	h.mu.Lock()
	delete(h.loaded, extensionID)
	peer := h.peers[extensionID]
	delete(h.peers, extensionID)
	h.mu.Unlock()

	if peer != nil {
		_ = peer.Close()
	}

	h.log.Debug("Unregistered extension", "extension", extensionID)
}

// Authorize checks an extension's connect token.
func (h *Hub) Authorize(extensionID, connectToken string) error {
	h.mu.RLock()
	expected, ok := h.loaded[extensionID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownExtension, extensionID)
	}

	if connectToken != expected {
		return fmt.Errorf("%w: bad connect token for %s", errors.ErrUnauthorized, extensionID)
	}

	return nil
}

// Attach marks an authorized extension connected. A previous connection for
// the same extension is closed and replaced.
func (h *Hub) Attach(extensionID, connectToken string, peer Peer) error {
	if err := h.Authorize(extensionID, connectToken); err != nil {
		return err
	}

	h.mu.Lock()
	previous := h.peers[extensionID]
	h.peers[extensionID] = peer
	h.mu.Unlock()

	if previous != nil {
		h.log.Warn("Replacing existing connection", "extension", extensionID)
		_ = previous.Close()
	}

	h.log.Info("Extension connected", "extension", extensionID)

	return nil
}

// Detach removes peer if it is still the extension's current connection.
func (h *Hub) Detach(extensionID string, peer Peer) {
	h.mu.Lock()

	current, ok := h.peers[extensionID]
	if ok && current == peer {
		delete(h.peers, extensionID)
	}

	h.mu.Unlock()

	if ok && current == peer {
		h.log.Info("Extension disconnected", "extension", extensionID)
	}
}

// ConnectionStats returns the loaded and connected extension ids, sorted.
func (h *Hub) ConnectionStats(_ context.Context) (*protocol.Stats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return &protocol.Stats{
		Loaded:    slices.Sorted(maps.Keys(h.loaded)),
		Connected: slices.Sorted(maps.Keys(h.peers)),
	}, nil
}

// Subscribe registers handler for envelopes published on event.
func (h *Hub) Subscribe(event string, handler protocol.EventHandler) protocol.Subscription {
	sub := protocol.Subscription(ulid.Make().String())

	h.subsMu.Lock()
	defer h.subsMu.Unlock()

	if h.subs[event] == nil {
		h.subs[event] = make(map[protocol.Subscription]protocol.EventHandler, 1)
	}

	h.subs[event][sub] = handler

	return sub
}

// Unsubscribe removes a subscription. Unknown subscriptions are ignored.
func (h *Hub) Unsubscribe(event string, sub protocol.Subscription) {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()

	delete(h.subs[event], sub)

	if len(h.subs[event]) == 0 {
		delete(h.subs, event)
	}
}

// SubscriberCount returns the number of live subscriptions on event.
func (h *Hub) SubscriberCount(event string) int {
	h.subsMu.RLock()
	defer h.subsMu.RUnlock()

	return len(h.subs[event])
}

// SendToTarget writes {event, {chanel, data}} to the target's connection.
func (h *Hub) SendToTarget(ctx context.Context, target, event string, req *protocol.Request) error {
	h.mu.RLock()
	peer, connected := h.peers[target]
	_, loaded := h.loaded[target]
	h.mu.RUnlock()

	if !connected {
		return &errors.ExtensionStateError{Extension: target, Loaded: loaded}
	}

	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	data, err := json.Marshal(&protocol.Envelope{Event: event, Data: reqData})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return peer.Send(ctx, data)
}

// Publish delivers env to local subscribers of env.Event.
//
// Handlers run on the caller's goroutine without any hub lock held, so a
// handler may unsubscribe itself.
func (h *Hub) Publish(env *protocol.Envelope) int {
	h.subsMu.RLock()
	handlers := slices.Collect(maps.Values(h.subs[env.Event]))
	h.subsMu.RUnlock()

	for _, handler := range handlers {
		handler(env)
	}

	return len(handlers)
}

// Broadcast publishes env locally and forwards it to every connected
// extension except from.
func (h *Hub) Broadcast(ctx context.Context, from string, env *protocol.Envelope) error {
	delivered := h.Publish(env)

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	h.mu.RLock()
	targets := make(map[string]Peer, len(h.peers))
	for id, peer := range h.peers {
		if id != from {
			targets[id] = peer
		}
	}
	h.mu.RUnlock()

	for id, peer := range targets {
		if err := peer.Send(ctx, data); err != nil {
			h.log.Warn("Failed to forward broadcast", "extension", id, "event", env.Event, "error", err)
		}
	}

	h.log.Debug("Broadcast", "from", from, "event", env.Event, "subscribers", delivered, "peers", len(targets))

	return nil
}

// HandleFrame processes one frame sent by extension from.
func (h *Hub) HandleFrame(ctx context.Context, from string, raw []byte) error {
	var frame protocol.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return &errors.EnvelopeDecodeError{RawData: string(raw), Err: err}
	}

	if frame.Method != protocol.MethodBroadcast {
		return fmt.Errorf("%w: %q", errors.ErrUnknownMethod, frame.Method)
	}

	if frame.AccessToken != h.token {
		return fmt.Errorf("%w: bad access token from %s", errors.ErrUnauthorized, from)
	}

	var env protocol.Envelope
	if err := json.Unmarshal(frame.Data, &env); err != nil {
		return &errors.EnvelopeDecodeError{RawData: string(frame.Data), Err: err}
	}

	return h.Broadcast(ctx, from, &env)
}

// Close disconnects every extension.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[string]Peer, 8)
	h.mu.Unlock()

	for _, peer := range peers {
		_ = peer.Close()
	}
}

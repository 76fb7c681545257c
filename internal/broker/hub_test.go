package broker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	ipcerrors "github.com/warp-js/ipc-server/internal/errors"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// fakePeer records what the hub writes to it.
type fakePeer struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	closed  int
}

func (p *fakePeer) Send(_ context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sendErr != nil {
		return p.sendErr
	}

	p.sent = append(p.sent, data)

	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed++

	return nil
}

func (p *fakePeer) messages() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([][]byte(nil), p.sent...)
}

func newTestHub() *Hub {
	return NewHub(slog.Default(), "access")
}

func broadcastFrame(t *testing.T, token, event, data string) []byte {
	t.Helper()

	env, err := json.Marshal(&protocol.Envelope{Event: event, Data: json.RawMessage(data)})
	require.NoError(t, err)

	raw, err := json.Marshal(&protocol.Frame{
		ID:          "f1",
		Method:      protocol.MethodBroadcast,
		AccessToken: token,
		Data:        env,
	})
	require.NoError(t, err)

	return raw
}

func TestNewHub_GeneratesToken(t *testing.T) {
	hub := NewHub(slog.Default(), "")
	require.Len(t, hub.Token(), 26, "generated tokens are ULIDs")

	require.Equal(t, "access", newTestHub().Token())
}

func TestHub_ConnectionStats(t *testing.T) {
	hub := newTestHub()

	stats, err := hub.ConnectionStats(context.Background())
	require.NoError(t, err)
	require.Empty(t, stats.Loaded)
	require.Empty(t, stats.Connected)

	tokenB := hub.Register("b")
	hub.Register("a")

	require.NoError(t, hub.Attach("b", tokenB, &fakePeer{}))

	stats, err = hub.ConnectionStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, stats.Loaded)
	require.Equal(t, []string{"b"}, stats.Connected)
	require.True(t, stats.IsLoaded("a"))
	require.False(t, stats.IsConnected("a"))
}

func TestHub_Authorize(t *testing.T) {
	hub := newTestHub()
	token := hub.Register("calc")

	require.NoError(t, hub.Authorize("calc", token))
	require.ErrorIs(t, hub.Authorize("calc", "wrong"), ipcerrors.ErrUnauthorized)
	require.ErrorIs(t, hub.Authorize("other", token), ipcerrors.ErrUnknownExtension)

	rotated := hub.Register("calc")
	require.NotEqual(t, token, rotated)
	require.ErrorIs(t, hub.Authorize("calc", token), ipcerrors.ErrUnauthorized)
}

func TestHub_AttachReplacesAndDetach(t *testing.T) {
	hub := newTestHub()
	token := hub.Register("calc")

	first := &fakePeer{}
	second := &fakePeer{}

	require.NoError(t, hub.Attach("calc", token, first))
	require.NoError(t, hub.Attach("calc", token, second))
	require.Equal(t, 1, first.closed)

	// Detaching the stale peer leaves the current one connected.
	hub.Detach("calc", first)

	stats, _ := hub.ConnectionStats(context.Background())
	require.Equal(t, []string{"calc"}, stats.Connected)

	hub.Detach("calc", second)

	stats, _ = hub.ConnectionStats(context.Background())
	require.Empty(t, stats.Connected)
	require.Equal(t, []string{"calc"}, stats.Loaded)
}

func TestHub_Unregister(t *testing.T) {
	hub := newTestHub()
	token := hub.Register("calc")
	peer := &fakePeer{}

	require.NoError(t, hub.Attach("calc", token, peer))

	hub.Unregister("calc")

	require.Equal(t, 1, peer.closed)

	stats, _ := hub.ConnectionStats(context.Background())
	require.Empty(t, stats.Loaded)
	require.Empty(t, stats.Connected)
}

func TestHub_SendToTarget(t *testing.T) {
	hub := newTestHub()
	token := hub.Register("calc")
	peer := &fakePeer{}

	require.NoError(t, hub.Attach("calc", token, peer))

	err := hub.SendToTarget(context.Background(), "calc", "add", &protocol.Request{
		Chanel: "r1-add",
		Data:   json.RawMessage(`{"a":2,"b":3}`),
	})
	require.NoError(t, err)

	msgs := peer.messages()
	require.Len(t, msgs, 1)
	require.JSONEq(t, `{"event":"add","data":{"chanel":"r1-add","data":{"a":2,"b":3}}}`, string(msgs[0]))
}

func TestHub_SendToTarget_NotConnected(t *testing.T) {
	hub := newTestHub()
	hub.Register("calc")

	err := hub.SendToTarget(context.Background(), "calc", "add", &protocol.Request{Chanel: "x-add"})
	require.ErrorIs(t, err, ipcerrors.ErrLoadedNotConnected)

	err = hub.SendToTarget(context.Background(), "ghost", "add", &protocol.Request{Chanel: "x-add"})
	require.ErrorIs(t, err, ipcerrors.ErrNotLoadedNotConnected)
}

func TestHub_SubscribePublish(t *testing.T) {
	hub := newTestHub()

	var got []string

	sub := hub.Subscribe("r1-add", func(env *protocol.Envelope) {
		got = append(got, string(env.Data))
	})
	require.Equal(t, 1, hub.SubscriberCount("r1-add"))

	require.Equal(t, 1, hub.Publish(&protocol.Envelope{Event: "r1-add", Data: json.RawMessage(`5`)}))
	require.Equal(t, 0, hub.Publish(&protocol.Envelope{Event: "other", Data: json.RawMessage(`1`)}))

	hub.Unsubscribe("r1-add", sub)
	hub.Unsubscribe("r1-add", sub)
	require.Equal(t, 0, hub.SubscriberCount("r1-add"))

	require.Equal(t, 0, hub.Publish(&protocol.Envelope{Event: "r1-add", Data: json.RawMessage(`6`)}))
	require.Equal(t, []string{"5"}, got)
}

func TestHub_HandlerMayUnsubscribeDuringPublish(t *testing.T) {
	hub := newTestHub()

	var sub protocol.Subscription

	sub = hub.Subscribe("once", func(*protocol.Envelope) {
		hub.Unsubscribe("once", sub)
	})

	hub.Publish(&protocol.Envelope{Event: "once"})
	require.Equal(t, 0, hub.SubscriberCount("once"))
}

func TestHub_HandleFrame(t *testing.T) {
	hub := newTestHub()
	tokA := hub.Register("a")
	tokB := hub.Register("b")

	peerA := &fakePeer{}
	peerB := &fakePeer{}

	require.NoError(t, hub.Attach("a", tokA, peerA))
	require.NoError(t, hub.Attach("b", tokB, peerB))

	received := make(chan string, 1)
	hub.Subscribe("r1-add", func(env *protocol.Envelope) {
		received <- string(env.Data)
	})

	err := hub.HandleFrame(context.Background(), "a", broadcastFrame(t, "access", "r1-add", `5`))
	require.NoError(t, err)
	require.Equal(t, "5", <-received)

	// Forwarded to the other extension, not echoed to the sender.
	require.Empty(t, peerA.messages())
	require.Len(t, peerB.messages(), 1)
	require.JSONEq(t, `{"event":"r1-add","data":5}`, string(peerB.messages()[0]))
}

func TestHub_HandleFrame_Errors(t *testing.T) {
	hub := newTestHub()

	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{
			name:    "bad access token",
			raw:     broadcastFrame(t, "wrong", "e", `1`),
			wantErr: ipcerrors.ErrUnauthorized,
		},
		{
			name:    "unknown method",
			raw:     []byte(`{"id":"1","method":"app.exit","accessToken":"access"}`),
			wantErr: ipcerrors.ErrUnknownMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, hub.HandleFrame(context.Background(), "a", tt.raw), tt.wantErr)
		})
	}

	t.Run("malformed frame", func(t *testing.T) {
		_, ok := errors.AsType[*ipcerrors.EnvelopeDecodeError](
			hub.HandleFrame(context.Background(), "a", []byte("{")))
		require.True(t, ok)
	})

	t.Run("malformed envelope", func(t *testing.T) {
		raw := []byte(`{"id":"1","method":"app.broadcast","accessToken":"access","data":"x"}`)
		_, ok := errors.AsType[*ipcerrors.EnvelopeDecodeError](hub.HandleFrame(context.Background(), "a", raw))
		require.True(t, ok)
	})
}

func TestHub_BroadcastSendFailureIsLogged(t *testing.T) {
	hub := newTestHub()
	tok := hub.Register("b")

	require.NoError(t, hub.Attach("b", tok, &fakePeer{sendErr: errors.New("gone")}))
	require.NoError(t, hub.Broadcast(context.Background(), "a", &protocol.Envelope{Event: "e"}))
}

func TestHub_Close(t *testing.T) {
	hub := newTestHub()
	tok := hub.Register("calc")
	peer := &fakePeer{}

	require.NoError(t, hub.Attach("calc", tok, peer))

	hub.Close()

	require.Equal(t, 1, peer.closed)

	stats, _ := hub.ConnectionStats(context.Background())
	require.Empty(t, stats.Connected)
}

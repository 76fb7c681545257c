package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/warp-js/ipc-server/internal/protocol"
)

// sentCall records one SendToTarget invocation.
type sentCall struct {
	target string
	event  string
	req    *protocol.Request
}

// fakeTransport implements config.Transport for testing.
type fakeTransport struct {
	mu          sync.Mutex
	stats       protocol.Stats
	statsErr    error
	sendErr     error
	subs        map[string]map[protocol.Subscription]protocol.EventHandler
	unsubCounts map[protocol.Subscription]int
	sent        []sentCall
	nextSub     int

	// onSend is invoked after a send is recorded, outside the lock.
	onSend func(target, event string, req *protocol.Request)
}

func newFakeTransport(loaded, connected []string) *fakeTransport {
	return &fakeTransport{
		stats:       protocol.Stats{Loaded: loaded, Connected: connected},
		subs:        make(map[string]map[protocol.Subscription]protocol.EventHandler),
		unsubCounts: make(map[protocol.Subscription]int),
	}
}

func (f *fakeTransport) ConnectionStats(_ context.Context) (*protocol.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statsErr != nil {
		return nil, f.statsErr
	}

	stats := f.stats

	return &stats, nil
}

func (f *fakeTransport) Subscribe(event string, handler protocol.EventHandler) protocol.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextSub++
	sub := protocol.Subscription(fmt.Sprintf("sub-%d", f.nextSub))

	if f.subs[event] == nil {
		f.subs[event] = make(map[protocol.Subscription]protocol.EventHandler)
	}

	f.subs[event][sub] = handler

	return sub
}

func (f *fakeTransport) Unsubscribe(event string, sub protocol.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unsubCounts[sub]++

	delete(f.subs[event], sub)

	if len(f.subs[event]) == 0 {
		delete(f.subs, event)
	}
}

func (f *fakeTransport) SendToTarget(_ context.Context, target, event string, req *protocol.Request) error {
	f.mu.Lock()

	if f.sendErr != nil {
		f.mu.Unlock()

		return f.sendErr
	}

	f.sent = append(f.sent, sentCall{target: target, event: event, req: req})
	onSend := f.onSend

	f.mu.Unlock()

	if onSend != nil {
		onSend(target, event, req)
	}

	return nil
}

// publish delivers data to every handler subscribed on event.
func (f *fakeTransport) publish(event string, data string) {
	f.mu.Lock()

	handlers := make([]protocol.EventHandler, 0, len(f.subs[event]))
	for _, h := range f.subs[event] {
		handlers = append(handlers, h)
	}

	f.mu.Unlock()

	for _, h := range handlers {
		h(&protocol.Envelope{Event: event, Data: json.RawMessage(data)})
	}
}

func (f *fakeTransport) subscriptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, subs := range f.subs {
		n += len(subs)
	}

	return n
}

func (f *fakeTransport) sentCalls() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]sentCall, len(f.sent))
	copy(result, f.sent)

	return result
}

func (f *fakeTransport) unsubscribeCounts() map[protocol.Subscription]int {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[protocol.Subscription]int, len(f.unsubCounts))
	for k, v := range f.unsubCounts {
		result[k] = v
	}

	return result
}

package extension

import (
	"context"
	"fmt"
	"slices"

	"github.com/warp-js/ipc-server/internal/errors"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// HandlerFunc handles one inbound event. The request carries the reply
// channel; the handler answers through res, once, many times or not at all.
type HandlerFunc func(ctx context.Context, req *protocol.Request, res *Response)

// Route binds an event name to its handler.
type Route struct {
	Event   string
	Handler HandlerFunc
}

// Routes is a validated, immutable event handler table.
type Routes struct {
	handlers map[string]HandlerFunc
	events   []string
}

// NewRoutes validates routes and builds the handler table.
//
// Every route needs a non-empty event and a non-nil handler, events must be
// unique and at least one route is required.
func NewRoutes(routes ...Route) (*Routes, error) {
	if len(routes) == 0 {
		return nil, errors.ErrNoHandlers
	}

	table := &Routes{
		handlers: make(map[string]HandlerFunc, len(routes)),
		events:   make([]string, 0, len(routes)),
	}

	for i, route := range routes {
		if route.Event == "" {
			return nil, fmt.Errorf("%w: route %d has no event name", errors.ErrInvalidHandler, i)
		}

		if route.Handler == nil {
			return nil, fmt.Errorf("%w: route %q has no handler", errors.ErrInvalidHandler, route.Event)
		}

		if _, exists := table.handlers[route.Event]; exists {
			return nil, fmt.Errorf("%w: %q", errors.ErrDuplicateHandler, route.Event)
		}

		table.handlers[route.Event] = route.Handler
		table.events = append(table.events, route.Event)
	}

	slices.Sort(table.events)

	return table, nil
}

// Lookup returns the handler registered for event.
func (r *Routes) Lookup(event string) (HandlerFunc, bool) {
	h, ok := r.handlers[event]

	return h, ok
}

// Events returns the registered event names in sorted order.
func (r *Routes) Events() []string {
	return slices.Clone(r.events)
}

// Len returns the number of registered events.
func (r *Routes) Len() int {
	return len(r.handlers)
}

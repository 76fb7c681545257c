package extension

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warp-js/ipc-server/internal/errors"
	"github.com/warp-js/ipc-server/internal/protocol"
)

func noop(context.Context, *protocol.Request, *Response) {}

func TestNewRoutes(t *testing.T) {
	tests := []struct {
		name    string
		routes  []Route
		wantErr error
		events  []string
	}{
		{
			name:   "single route",
			routes: []Route{{Event: "add", Handler: noop}},
			events: []string{"add"},
		},
		{
			name:   "sorted events",
			routes: []Route{{Event: "sub", Handler: noop}, {Event: "add", Handler: noop}},
			events: []string{"add", "sub"},
		},
		{
			name:    "empty table",
			wantErr: errors.ErrNoHandlers,
		},
		{
			name:    "empty event",
			routes:  []Route{{Event: "", Handler: noop}},
			wantErr: errors.ErrInvalidHandler,
		},
		{
			name:    "nil handler",
			routes:  []Route{{Event: "add"}},
			wantErr: errors.ErrInvalidHandler,
		},
		{
			name:    "duplicate event",
			routes:  []Route{{Event: "add", Handler: noop}, {Event: "add", Handler: noop}},
			wantErr: errors.ErrDuplicateHandler,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes, err := NewRoutes(tt.routes...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, routes)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.events, routes.Events())
			require.Equal(t, len(tt.events), routes.Len())
		})
	}
}

func TestRoutes_Lookup(t *testing.T) {
	routes, err := NewRoutes(Route{Event: "add", Handler: noop})
	require.NoError(t, err)

	h, ok := routes.Lookup("add")
	require.True(t, ok)
	require.NotNil(t, h)

	_, ok = routes.Lookup("mul")
	require.False(t, ok)
}

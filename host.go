package ipc

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/warp-js/ipc-server/internal/broker"
	"github.com/warp-js/ipc-server/internal/dispatch"
	"github.com/warp-js/ipc-server/internal/host"
)

// Hub routes envelopes between the host and connected extensions.
type Hub = broker.Hub

// Manifest is the host configuration file.
type Manifest = host.Manifest

// ExtensionSpec describes one extension process in a Manifest.
type ExtensionSpec = host.ExtensionSpec

// ToolSpec exposes one (extension, event) pair as an MCP tool.
type ToolSpec = host.ToolSpec

// LoadManifest reads a YAML manifest, applying environment overrides.
func LoadManifest(path string) (*Manifest, error) {
	return host.LoadManifest(path)
}

// NewHub creates a standalone hub. An empty token generates a random one.
func NewHub(token string, opts ...Option) *Hub {
	return broker.NewHub(applyOptions(opts).Logger, token)
}

// Host runs the broker and the extensions of a Manifest.
type Host struct {
	log      *slog.Logger
	hub      *broker.Hub
	launcher *host.Launcher
	caller   *dispatch.Caller
	port     int

	cancel context.CancelFunc
	group  *errgroup.Group
}

// StartHost listens on the manifest address, starts the broker and launches
// every extension. Extensions are started but not necessarily connected when
// it returns; use WaitConnected.
func StartHost(ctx context.Context, manifest *Manifest, opts ...Option) (*Host, error) {
	options := applyOptions(opts)
	log := options.Logger

	if options.Timeout == 0 {
		options.Timeout = manifest.DispatchTimeout
	}

	ln, err := net.Listen("tcp", manifest.Addr())
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", manifest.Addr(), err)
	}

	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		_ = ln.Close()

		return nil, fmt.Errorf("listener address %s is not TCP", ln.Addr())
	}

	hub := broker.NewHub(log, manifest.Token)
	server := broker.NewServer(log, hub)

	serveCtx, cancel := context.WithCancel(ctx)
	g, gCtx := errgroup.WithContext(serveCtx)

	g.Go(func() error {
		return server.Serve(gCtx, ln)
	})

	h := &Host{
		log:      log.With("component", "host"),
		hub:      hub,
		launcher: host.NewLauncher(log, hub, tcpAddr.Port),
		caller:   dispatch.NewCaller(log, hub, options),
		port:     tcpAddr.Port,
		cancel:   cancel,
		group:    g,
	}

	if err := h.launcher.StartAll(ctx, manifest.Extensions); err != nil {
		cancel()
		_ = g.Wait()

		return nil, err
	}

	h.log.Info("Host started", "port", h.port, "extensions", len(manifest.Extensions))

	return h, nil
}

// Hub returns the host's hub. It implements Transport.
func (h *Host) Hub() *Hub { return h.hub }

// Caller returns the host's caller.
func (h *Host) Caller() *Caller { return h.caller }

// Port returns the port the broker listens on.
func (h *Host) Port() int { return h.port }

// Dispatch sends event to target through the host's hub.
func (h *Host) Dispatch(ctx context.Context, target, event string, payload any) (*Envelope, error) {
	return h.caller.Dispatch(ctx, target, event, payload)
}

// WaitConnected blocks until every listed extension is connected.
func (h *Host) WaitConnected(ctx context.Context, extensionIDs ...string) error {
	for _, id := range extensionIDs {
		if err := host.WaitConnected(ctx, h.hub, id, 20*time.Millisecond); err != nil {
			return err
		}
	}

	return nil
}

// Close stops every extension and shuts the broker down.
func (h *Host) Close() error {
	var result *multierror.Error

	if err := h.launcher.StopAll(); err != nil {
		result = multierror.Append(result, err)
	}

	h.cancel()

	if err := h.group.Wait(); err != nil && !stderrors.Is(err, context.Canceled) {
		result = multierror.Append(result, err)
	}

	h.log.Info("Host stopped")

	return result.ErrorOrNil()
}

// WithHost manages host lifecycle with automatic cleanup.
//
// The callback receives a started Host. If Close fails, a warning is logged
// but does not override the callback's error.
//
// Example usage:
//
//	err := ipc.WithHost(ctx, manifest, func(h *ipc.Host) error {
//	    if err := h.WaitConnected(ctx, "calc"); err != nil {
//	        return err
//	    }
//
//	    reply, err := h.Dispatch(ctx, "calc", "add", map[string]int{"a": 2, "b": 3})
//	    if err != nil {
//	        return err
//	    }
//
//	    fmt.Println(string(reply.Data))
//
//	    return nil
//	})
func WithHost(ctx context.Context, manifest *Manifest, fn func(*Host) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	h, err := StartHost(ctx, manifest, opts...)
	if err != nil {
		return fmt.Errorf("failed to start host: %w", err)
	}

	defer func() {
		if closeErr := h.Close(); closeErr != nil {
			options.Logger.Warn("failed to close host", "error", closeErr)
		}
	}()

	return fn(h)
}

// Server accepts extension WebSocket connections for a Hub.
type Server = broker.Server

// NewServer creates an http.Handler that extensions dial into.
func NewServer(hub *Hub, opts ...Option) *Server {
	return broker.NewServer(applyOptions(opts).Logger, hub)
}

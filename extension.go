package ipc

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/warp-js/ipc-server/internal/config"
	"github.com/warp-js/ipc-server/internal/errors"
	"github.com/warp-js/ipc-server/internal/extension"
	"github.com/warp-js/ipc-server/internal/logging"
	"github.com/warp-js/ipc-server/internal/protocol"
)

// Handle binds handler to event.
func Handle(event string, handler HandlerFunc) Route {
	return Route{Event: event, Handler: handler}
}

// Extension is a connected extension process.
type Extension struct {
	identity protocol.Identity
	log      *slog.Logger
	out      *slog.Logger
	conn     config.Conn
	listener *extension.Listener
	exit     func(int)
}

// NewExtension reads the bootstrap record, validates routes and connects to
// the host. Any failure returns a ConstructionError and leaves nothing
// running.
func NewExtension(ctx context.Context, routes []Route, opts ...Option) (*Extension, error) {
	options := applyOptions(opts)
	log := options.Logger

	table, err := extension.NewRoutes(routes...)
	if err != nil {
		return nil, &errors.ConstructionError{Err: err}
	}

	stdin := options.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	boot, err := config.ReadBootstrap(stdin)
	if err != nil {
		return nil, &errors.ConstructionError{Err: err}
	}

	log = log.With("extension", boot.ExtensionID)

	conn := options.Conn
	if conn == nil {
		url := extension.ConnectURL(options.EffectiveHostname(), boot.Port, boot.ExtensionID, boot.ConnectToken)

		wsConn, err := extension.Dial(ctx, log, url)
		if err != nil {
			return nil, &errors.ConstructionError{ExtensionID: boot.ExtensionID, Err: err}
		}

		conn = wsConn
	}

	exit := options.Exit
	if exit == nil {
		exit = os.Exit
	}

	e := &Extension{
		identity: protocol.Identity{
			Port:        boot.Port,
			Token:       boot.Token,
			ExtensionID: boot.ExtensionID,
		},
		log:      log,
		out:      logging.NewLogger(boot.ExtensionID, nil),
		conn:     conn,
		listener: extension.NewListener(log, conn, boot.Token, table),
		exit:     exit,
	}

	e.Log("Connected", LevelInfo)

	return e, nil
}

// Port returns the host broker port.
func (e *Extension) Port() int { return e.identity.Port }

// Token returns the access token replies are signed with.
func (e *Extension) Token() string { return e.identity.Token }

// ExtensionID returns the id the host assigned this extension.
func (e *Extension) ExtensionID() string { return e.identity.ExtensionID }

// Identity returns the identity record established at startup.
func (e *Extension) Identity() Identity { return e.identity }

// Logger returns the "[extensionId]: LEVEL message" logger.
func (e *Extension) Logger() *slog.Logger { return e.out }

// Log writes message at level. Non-string messages are rendered as
// tab-indented JSON.
func (e *Extension) Log(message any, level slog.Level) {
	e.out.Log(context.Background(), level, logging.FormatMessage(message))
}

// Run routes inbound events until the connection closes (ErrConnectionClosed)
// or ctx is cancelled.
func (e *Extension) Run(ctx context.Context) error {
	return e.listener.Run(ctx)
}

// Close closes the host connection.
func (e *Extension) Close() error {
	return e.conn.Close()
}

// Serve starts an extension and runs it until the host connection closes,
// then exits the process with status 0. Construction failures are returned
// without exiting; so is a cancelled ctx.
func Serve(ctx context.Context, routes []Route, opts ...Option) error {
	e, err := NewExtension(ctx, routes, opts...)
	if err != nil {
		return err
	}

	runErr := e.Run(ctx)

	if err := e.Close(); err != nil {
		e.log.Debug("Close after run", "error", err)
	}

	if stderrors.Is(runErr, errors.ErrConnectionClosed) {
		e.Log("Close", LevelInfo)
		e.exit(0)

		return nil
	}

	return fmt.Errorf("extension %s: %w", e.ExtensionID(), runErr)
}

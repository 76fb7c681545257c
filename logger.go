package ipc

import (
	"io"
	"log/slog"

	"github.com/warp-js/ipc-server/internal/logging"
)

// Log levels accepted by Extension.Log.
const (
	LevelInfo  = slog.LevelInfo
	LevelError = slog.LevelError
)

// NopLogger returns a logger that discards all output.
// Use this when you want silent operation with no logging overhead.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewExtensionLogger returns a logger writing "[extensionId]: LEVEL message"
// lines, INFO to stdout and ERROR to stderr, colored on terminals.
func NewExtensionLogger(extensionID string) *slog.Logger {
	return logging.NewLogger(extensionID, nil)
}

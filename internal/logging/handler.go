package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Level is the minimum level written. Defaults to slog.LevelInfo.
	Level slog.Leveler

	// Out receives records below slog.LevelError. Defaults to os.Stdout.
	Out io.Writer

	// Err receives records at slog.LevelError and above. Defaults to os.Stderr.
	Err io.Writer

	// Color forces color on or off. If nil, color is used only when the
	// destination writer is a terminal.
	Color *bool
}

// Handler is a slog.Handler writing one prefixed line per record.
type Handler struct {
	id    string
	level slog.Leveler
	out   *stream
	err   *stream
	attrs []slog.Attr
	group string
}

// stream is a destination writer with its own color decision.
type stream struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// Compile-time verification that Handler implements slog.Handler.
var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a handler that prefixes every line with [id].
func NewHandler(id string, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}

	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	errOut := opts.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	return &Handler{
		id:    id,
		level: level,
		out:   newStream(out, opts.Color),
		err:   newStream(errOut, opts.Color),
	}
}

// NewLogger returns a slog.Logger backed by NewHandler.
func NewLogger(id string, opts *HandlerOptions) *slog.Logger {
	return slog.New(NewHandler(id, opts))
}

func newStream(w io.Writer, force *bool) *stream {
	useColor := IsTerminal(w)
	if force != nil {
		useColor = *force
	}

	return &stream{w: w, color: useColor}
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	dst := h.out
	if r.Level >= slog.LevelError {
		dst = h.err
	}

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "[%s]: %s %s", h.id, levelLabel(r.Level, dst.color), r.Message)

	for _, a := range h.attrs {
		writeAttr(&buf, "", a)
	}

	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.group, a)

		return true
	})

	buf.WriteByte('\n')

	dst.mu.Lock()
	defer dst.mu.Unlock()

	_, err := dst.w.Write(buf.Bytes())

	return err
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clone(h.attrs)

	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}

		clone.attrs = append(clone.attrs, a)
	}

	return &clone
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}

	return &clone
}

func levelLabel(level slog.Level, useColor bool) string {
	label := level.String()

	var c *color.Color

	switch {
	case level >= slog.LevelError:
		c = color.New(color.FgRed)
	case level >= slog.LevelWarn:
		c = color.New(color.FgYellow)
	case level >= slog.LevelInfo:
		c = color.New(color.FgGreen)
	default:
		c = color.New(color.FgCyan)
	}

	if useColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	return c.Sprint(label)
}

func writeAttr(buf *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if group != "" {
		key = group + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(buf, key, ga)
		}

		return
	}

	fmt.Fprintf(buf, " %s=%v", key, a.Value.Any())
}

// FormatMessage renders a log message. Strings are used as-is; any other
// value is rendered as tab-indented JSON, falling back to fmt for values
// JSON cannot encode.
func FormatMessage(message any) string {
	switch m := message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case fmt.Stringer:
		return m.String()
	}

	data, err := json.MarshalIndent(message, "", "\t")
	if err != nil {
		return fmt.Sprint(message)
	}

	return string(data)
}

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger(level slog.Level, color bool) (*slog.Logger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer

	log := NewLogger("calc", &HandlerOptions{
		Level: level,
		Out:   &out,
		Err:   &errOut,
		Color: &color,
	})

	return log, &out, &errOut
}

func TestHandler_InfoToOut(t *testing.T) {
	log, out, errOut := newTestLogger(slog.LevelInfo, false)

	log.Info("Connected")

	require.Equal(t, "[calc]: INFO Connected\n", out.String())
	require.Empty(t, errOut.String())
}

func TestHandler_ErrorToErr(t *testing.T) {
	log, out, errOut := newTestLogger(slog.LevelInfo, false)

	log.Error("boom")

	require.Empty(t, out.String())
	require.Equal(t, "[calc]: ERROR boom\n", errOut.String())
}

func TestHandler_Colors(t *testing.T) {
	log, out, errOut := newTestLogger(slog.LevelInfo, true)

	log.Info("hi")
	log.Error("bad")

	require.Equal(t, "[calc]: \x1b[32mINFO\x1b[0m hi\n", out.String())
	require.Equal(t, "[calc]: \x1b[31mERROR\x1b[0m bad\n", errOut.String())
}

func TestHandler_Level(t *testing.T) {
	log, out, _ := newTestLogger(slog.LevelInfo, false)

	log.Debug("hidden")
	require.Empty(t, out.String())

	log, out, _ = newTestLogger(slog.LevelDebug, false)

	log.Debug("shown")
	require.Equal(t, "[calc]: DEBUG shown\n", out.String())
}

func TestHandler_Attrs(t *testing.T) {
	log, out, _ := newTestLogger(slog.LevelInfo, false)

	log.With("component", "listener").WithGroup("req").Info("got", "event", "add")

	require.Equal(t, "[calc]: INFO got component=listener req.event=add\n", out.String())
}

func TestFormatMessage(t *testing.T) {
	require.Equal(t, "plain", FormatMessage("plain"))
	require.Equal(t, "{\n\t\"a\": 1\n}", FormatMessage(map[string]int{"a": 1}))
	require.Equal(t, "[\n\t1,\n\t2\n]", FormatMessage([]int{1, 2}))
	require.Equal(t, "42", FormatMessage(42))
	require.Equal(t, "os: process already finished", FormatMessage(os.ErrProcessDone))
}

func TestIsTerminal(t *testing.T) {
	require.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)

	defer f.Close()

	require.False(t, IsTerminal(f))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel(" WARN ")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestNewFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.log")

	w := NewFileWriter(FileOptions{Path: path})
	log := NewJSONLogger(w, slog.LevelInfo)

	log.Info("started", "port", 5173)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"started"`)
	require.Contains(t, string(data), `"port":5173`)
}

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtensionStateError_LoadedButNotConnected(t *testing.T) {
	err := &ExtensionStateError{Extension: "calc", Loaded: true}

	require.Equal(t, "extension {calc} is loaded but isn't connected", err.Error())
	require.ErrorIs(t, err, ErrLoadedNotConnected)
	require.NotErrorIs(t, err, ErrNotLoadedNotConnected)
	require.True(t, err.IsIPCError())
}

func TestExtensionStateError_NotLoaded(t *testing.T) {
	err := &ExtensionStateError{Extension: "calc"}

	require.Equal(t, "extension {calc} isn't loaded and connected", err.Error())
	require.ErrorIs(t, err, ErrNotLoadedNotConnected)
	require.NotErrorIs(t, err, ErrLoadedNotConnected)
}

func TestConstructionError(t *testing.T) {
	root := errors.New("dial failed")
	err := &ConstructionError{ExtensionID: "calc", Err: root}

	require.Equal(t, "failed to start extension calc: dial failed", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsIPCError())
}

func TestConstructionError_WithoutExtensionID(t *testing.T) {
	root := errors.New("stdin closed")
	err := &ConstructionError{Err: root}

	require.Equal(t, "failed to start extension: stdin closed", err.Error())
}

func TestBootstrapError(t *testing.T) {
	root := errors.New("missing nlPort")
	err := &BootstrapError{Err: root}

	require.Equal(t, "invalid bootstrap record: missing nlPort", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsIPCError())
}

func TestEnvelopeDecodeError(t *testing.T) {
	root := errors.New("unexpected token")
	err := &EnvelopeDecodeError{
		RawData: `{"event":`,
		Err:     root,
	}

	require.Equal(t, "failed to decode envelope: unexpected token", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsIPCError())
}

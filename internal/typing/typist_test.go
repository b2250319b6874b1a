package typing

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeScript creates an executable shell script standing in for ydotool.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ydotool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

// touchSocket creates a stand-in socket file; Type only checks existence.
func touchSocket(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".ydotool_socket")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

func TestTypePassesArgsAndSocketEnv(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "capture.txt")
	script := writeScript(t, `printf '%s\n' "$@" > `+capture+`
printf '%s\n' "$YDOTOOL_SOCKET" >> `+capture)
	socket := touchSocket(t)

	typist := New(testLogger(), Options{
		Binary:     script,
		Socket:     socket,
		KeyDelayMS: 12,
	})
	require.NoError(t, typist.Type(context.Background(), "hello world"))

	data, err := os.ReadFile(capture)
	require.NoError(t, err)
	require.Equal(t, "type\n--key-delay\n12\n--\nhello world \n"+socket+"\n", string(data))
}

func TestTypeEmptyTextIsNoop(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "capture.txt")
	script := writeScript(t, `touch `+capture)

	typist := New(testLogger(), Options{Binary: script, Socket: touchSocket(t)})
	require.NoError(t, typist.Type(context.Background(), ""))

	_, err := os.Stat(capture)
	require.True(t, os.IsNotExist(err))
}

func TestCheckClient(t *testing.T) {
	require.NoError(t, New(testLogger(), Options{Binary: "sh"}).CheckClient())

	err := New(testLogger(), Options{Binary: "definitely-not-a-real-injector"}).CheckClient()
	require.ErrorIs(t, err, ErrClientMissing)
}

func TestTypeFailsWhenSocketMissing(t *testing.T) {
	typist := New(testLogger(), Options{
		Binary: writeScript(t, "exit 0"),
		Socket: filepath.Join(t.TempDir(), "no-such-socket"),
	})

	err := typist.Type(context.Background(), "hello")
	require.ErrorIs(t, err, ErrSocketMissing)
}

func TestTypeWrapsClientFailure(t *testing.T) {
	script := writeScript(t, `echo "cannot reach daemon" >&2
exit 1`)

	typist := New(testLogger(), Options{Binary: script, Socket: touchSocket(t)})

	err := typist.Type(context.Background(), "hello")
	require.ErrorContains(t, err, "inject keystrokes")
	require.ErrorContains(t, err, "cannot reach daemon")
}

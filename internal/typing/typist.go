// Package typing injects recognized text as synthetic keystrokes through the
// ydotool daemon socket.
package typing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// ErrSocketMissing indicates the injection daemon socket does not exist, which
// usually means ydotoold is not running.
var ErrSocketMissing = errors.New("typing socket not found; is ydotoold running?")

// ErrClientMissing indicates the injection client binary is not installed.
var ErrClientMissing = errors.New("typing client binary not found in PATH")

// injectTimeout bounds one injection call so a wedged daemon cannot stall the
// pipeline indefinitely.
const injectTimeout = 5 * time.Second

// Options configures one typist.
type Options struct {
	// Binary is the injection client executable (ydotool).
	Binary string
	// Socket is the daemon socket path handed to the client via
	// YDOTOOL_SOCKET.
	Socket string
	// KeyDelayMS is the per-keystroke delay passed to the client.
	KeyDelayMS int
	// Env is the base environment block for the spawned client.
	Env []string
}

// Typist types text into the focused window of the target user's session.
type Typist struct {
	logger *slog.Logger
	opts   Options
}

// New constructs a typist.
func New(logger *slog.Logger, opts Options) *Typist {
	if opts.Binary == "" {
		opts.Binary = "ydotool"
	}
	return &Typist{logger: logger, opts: opts}
}

// CheckClient verifies the injection client binary resolves in PATH. Run it
// once at startup; a missing client is not recoverable per round.
func (t *Typist) CheckClient() error {
	if _, err := exec.LookPath(t.opts.Binary); err != nil {
		return fmt.Errorf("%w: %s", ErrClientMissing, t.opts.Binary)
	}
	return nil
}

// Type injects one segment of text followed by a separating space. Empty text
// is a no-op.
func (t *Typist) Type(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if _, err := os.Stat(t.opts.Socket); err != nil {
		return fmt.Errorf("%w (%s)", ErrSocketMissing, t.opts.Socket)
	}

	injectCtx, cancel := context.WithTimeout(ctx, injectTimeout)
	defer cancel()

	// The trailing space separates this segment from whatever is typed next.
	cmd := exec.CommandContext(injectCtx, t.opts.Binary,
		"type", "--key-delay", strconv.Itoa(t.opts.KeyDelayMS), "--", text+" ")
	cmd.Env = append(append([]string{}, t.opts.Env...), "YDOTOOL_SOCKET="+t.opts.Socket)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("inject keystrokes via %s: %w (%s)", t.opts.Binary, err, string(out))
	}

	t.logger.Info("text injected", "chars", len(text))
	return nil
}

// Package capture owns the lifetime of the external audio recorder process.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// ErrStopTimeout indicates the recorder ignored SIGTERM and was force-killed.
var ErrStopTimeout = errors.New("recorder did not exit before the kill ceiling")

// defaultStopTimeout bounds the graceful-stop wait so a stalled recorder
// cannot hang the orchestrator.
const defaultStopTimeout = 2 * time.Second

// Format describes the raw audio the recorder writes.
type Format struct {
	SampleRate   int
	Channels     int
	SampleFormat string
}

// Options configures one recorder controller.
type Options struct {
	// Binary is the recorder executable (arecord).
	Binary string
	// User, when set, runs the recorder via sudo -u <user> -E so capture
	// happens inside the target user's audio session.
	User string
	// Device is an optional capture device passed as -D.
	Device string
	// ArtifactPath is the fixed output file, overwritten each session.
	ArtifactPath string
	Format       Format
	// Env is the environment block for the spawned process.
	Env []string
	// StopTimeout overrides the graceful-stop ceiling (tests).
	StopTimeout time.Duration
}

// Controller spawns and stops at most one recorder process at a time.
//
// The controller assumes single-caller discipline: the orchestrator's state
// machine guarantees Start and Stop are never invoked concurrently.
type Controller struct {
	logger *slog.Logger
	opts   Options

	session *session
}

type session struct {
	cmd       *exec.Cmd
	startedAt time.Time
	waitErr   chan error
}

// New constructs a recorder controller.
func New(logger *slog.Logger, opts Options) *Controller {
	if opts.Binary == "" {
		opts.Binary = "arecord"
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	return &Controller{logger: logger, opts: opts}
}

// Active reports whether a recorder process is currently running.
func (c *Controller) Active() bool {
	return c.session != nil
}

// ArtifactPath returns the fixed audio output path.
func (c *Controller) ArtifactPath() string {
	return c.opts.ArtifactPath
}

// Start spawns the recorder. Calling Start while a session is active is a
// no-op; the overlap guard lives in the orchestrator and this is a safety net.
func (c *Controller) Start() error {
	if c.session != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.opts.ArtifactPath), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	argv := c.argv()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = c.opts.Env

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recorder %s: %w", c.opts.Binary, err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	c.session = &session{cmd: cmd, startedAt: time.Now(), waitErr: waitErr}
	c.logger.Info("recording started",
		"pid", cmd.Process.Pid,
		"path", c.opts.ArtifactPath,
		"sample_rate", c.opts.Format.SampleRate,
		"channels", c.opts.Format.Channels,
		"format", c.opts.Format.SampleFormat,
	)
	return nil
}

// Stop terminates the active recorder and waits for it to exit, force-killing
// past the stop ceiling. Stop with no active session is a no-op.
func (c *Controller) Stop() error {
	if c.session == nil {
		return nil
	}
	s := c.session
	c.session = nil

	_ = s.cmd.Process.Signal(syscall.SIGTERM)

	select {
	case err := <-s.waitErr:
		c.logger.Info("recording stopped",
			"path", c.opts.ArtifactPath,
			"duration_ms", time.Since(s.startedAt).Milliseconds(),
		)
		return normalizeExit(err)
	case <-time.After(c.opts.StopTimeout):
		_ = s.cmd.Process.Kill()
		<-s.waitErr
		c.logger.Warn("recorder ignored SIGTERM; force-killed",
			"path", c.opts.ArtifactPath,
			"duration_ms", time.Since(s.startedAt).Milliseconds(),
		)
		return ErrStopTimeout
	}
}

// argv builds the recorder command line, prefixed with sudo when a target
// user is configured.
func (c *Controller) argv() []string {
	args := make([]string, 0, 12)
	if c.opts.User != "" {
		args = append(args, "sudo", "-u", c.opts.User, "-E")
	}
	args = append(args, c.opts.Binary,
		"-f", c.opts.Format.SampleFormat,
		"-r", strconv.Itoa(c.opts.Format.SampleRate),
		"-c", strconv.Itoa(c.opts.Format.Channels),
	)
	if c.opts.Device != "" {
		args = append(args, "-D", c.opts.Device)
	}
	return append(args, c.opts.ArtifactPath)
}

// normalizeExit hides the expected non-zero exit produced by terminating the
// recorder with a signal.
func normalizeExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// Package listener runs the hold-to-dictate control loop: trigger key down
// starts the recorder, key up stops it and flushes the transcript into the
// focused window as keystrokes.
package listener

import (
	"context"
	"fmt"
	"log/slog"

	evdev "github.com/holoplot/go-evdev"

	"github.com/guidov/intel-speech-to-text/internal/device"
	"github.com/guidov/intel-speech-to-text/internal/fsm"
	"github.com/guidov/intel-speech-to-text/internal/transcribe"
)

// Recorder controls the external capture process for one artifact path.
type Recorder interface {
	Start() error
	Stop() error
	Active() bool
	ArtifactPath() string
}

// Transcriber turns a finished audio artifact into text segments.
type Transcriber interface {
	Transcribe(path string) ([]transcribe.Segment, error)
}

// Typist injects one text segment into the focused window.
type Typist interface {
	Type(ctx context.Context, text string) error
}

// Options wires one orchestrator.
type Options struct {
	Source device.Source
	// Trigger is the resolved key code the loop reacts to; all other keys
	// pass through untouched.
	Trigger evdev.EvCode
	// TriggerName is the configured key name, kept for logging.
	TriggerName string

	Recorder    Recorder
	Transcriber Transcriber
	Typist      Typist
}

// Orchestrator owns the dictation state machine. All state transitions happen
// on the single Run goroutine, so no locking is needed.
type Orchestrator struct {
	logger *slog.Logger
	opts   Options

	state fsm.State
}

// New constructs an orchestrator in the idle state.
func New(logger *slog.Logger, opts Options) *Orchestrator {
	return &Orchestrator{logger: logger, opts: opts, state: fsm.StateIdle}
}

type keyMessage struct {
	event device.KeyEvent
	err   error
}

// Run blocks until the context is cancelled or the input stream fails. A
// cancelled context is a clean shutdown: any active recording is stopped and
// Run returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	messages := make(chan keyMessage)
	go func() {
		for {
			event, err := o.opts.Source.Next()
			select {
			case messages <- keyMessage{event: event, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	o.logger.Info("listening for trigger key", "key", o.opts.TriggerName)

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case msg := <-messages:
			if msg.err != nil {
				o.shutdown()
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("input device stream: %w", msg.err)
			}
			if msg.event.Code != o.opts.Trigger {
				continue
			}
			switch msg.event.State {
			case device.KeyDown:
				o.handlePress()
			case device.KeyUp:
				o.handleRelease(ctx)
			}
		}
	}
}

// handlePress starts a recording round. Presses arriving in any state other
// than idle are dropped, which is what makes holding the key safe.
func (o *Orchestrator) handlePress() {
	next, err := fsm.Transition(o.state, fsm.EventPress)
	if err != nil {
		o.logger.Debug("trigger press ignored", "state", string(o.state))
		return
	}
	if err := o.opts.Recorder.Start(); err != nil {
		// Stay idle so the next press starts a fresh round.
		o.logger.Error("failed to start recording", "error", err.Error())
		return
	}
	o.state = next
}

// handleRelease stops the recorder and flushes the round. Releases outside
// the recording state are dropped.
func (o *Orchestrator) handleRelease(ctx context.Context) {
	next, err := fsm.Transition(o.state, fsm.EventRelease)
	if err != nil {
		o.logger.Debug("trigger release ignored", "state", string(o.state))
		return
	}
	o.state = next

	if err := o.opts.Recorder.Stop(); err != nil {
		o.logger.Error("recorder did not stop cleanly; abandoning round", "error", err.Error())
		o.abandonRound()
		return
	}
	o.flush(ctx)
}

// flush transcribes the finished artifact and types each segment in order.
func (o *Orchestrator) flush(ctx context.Context) {
	segments, err := o.opts.Transcriber.Transcribe(o.opts.Recorder.ArtifactPath())
	if err != nil {
		o.logger.Error("transcription failed; abandoning round", "error", err.Error())
		o.abandonRound()
		return
	}
	if len(segments) == 0 {
		o.logger.Info("no speech recognized")
	}

	for _, segment := range segments {
		if err := o.opts.Typist.Type(ctx, segment.Text); err != nil {
			o.logger.Error("keystroke injection failed; dropping rest of round", "error", err.Error())
			o.abandonRound()
			return
		}
	}

	o.state, _ = fsm.Transition(o.state, fsm.EventFlushed)
}

// abandonRound walks the state machine through error back to idle so the next
// trigger press starts clean.
func (o *Orchestrator) abandonRound() {
	errored, _ := fsm.Transition(o.state, fsm.EventFail)
	o.state, _ = fsm.Transition(errored, fsm.EventReset)
}

// shutdown stops any in-flight recording and closes the input stream.
func (o *Orchestrator) shutdown() {
	if o.opts.Recorder.Active() {
		if err := o.opts.Recorder.Stop(); err != nil {
			o.logger.Warn("recorder stop during shutdown", "error", err.Error())
		}
	}
	_ = o.opts.Source.Close()
	o.logger.Info("listener stopped")
}

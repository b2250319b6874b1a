package listener

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/require"

	"github.com/guidov/intel-speech-to-text/internal/device"
	"github.com/guidov/intel-speech-to-text/internal/transcribe"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errStreamDone = errors.New("stream done")

// scriptedSource replays a fixed sequence of key events, then fails with
// errStreamDone so Run terminates deterministically after processing them all.
type scriptedSource struct {
	events []device.KeyEvent

	mu     sync.Mutex
	next   int
	closed chan struct{}
	once   sync.Once
}

func newScriptedSource(events ...device.KeyEvent) *scriptedSource {
	return &scriptedSource{events: events, closed: make(chan struct{})}
}

func (s *scriptedSource) Next() (device.KeyEvent, error) {
	s.mu.Lock()
	if s.next < len(s.events) {
		event := s.events[s.next]
		s.next++
		s.mu.Unlock()
		return event, nil
	}
	s.mu.Unlock()

	<-s.closed
	return device.KeyEvent{}, errStreamDone
}

func (s *scriptedSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// exhausted sources fail immediately once the script runs out.
func (s *scriptedSource) exhaust() { _ = s.Close() }

type fakeRecorder struct {
	startErr error
	stopErr  error

	startCalls int
	stopCalls  int
	active     bool
	started    chan struct{}
}

func (r *fakeRecorder) Start() error {
	r.startCalls++
	if r.startErr != nil {
		return r.startErr
	}
	r.active = true
	if r.started != nil {
		close(r.started)
		r.started = nil
	}
	return nil
}

func (r *fakeRecorder) Stop() error {
	r.stopCalls++
	r.active = false
	return r.stopErr
}

func (r *fakeRecorder) Active() bool { return r.active }

func (r *fakeRecorder) ArtifactPath() string { return "/tmp/recorded_audio.wav" }

type fakeTranscriber struct {
	segments []transcribe.Segment
	err      error

	calls int
	paths []string
}

func (f *fakeTranscriber) Transcribe(path string) ([]transcribe.Segment, error) {
	f.calls++
	f.paths = append(f.paths, path)
	return f.segments, f.err
}

type fakeTypist struct {
	errOn int // 1-based call index that fails; 0 never fails

	texts []string
}

func (f *fakeTypist) Type(_ context.Context, text string) error {
	f.texts = append(f.texts, text)
	if f.errOn > 0 && len(f.texts) == f.errOn {
		return errors.New("daemon unreachable")
	}
	return nil
}

const trigger = evdev.KEY_RIGHTCTRL

func press() device.KeyEvent   { return device.KeyEvent{Code: trigger, State: device.KeyDown} }
func release() device.KeyEvent { return device.KeyEvent{Code: trigger, State: device.KeyUp} }

// runRound drives Run to completion over the scripted events and returns the
// terminal error (errStreamDone on the happy path).
func runRound(t *testing.T, opts Options, source *scriptedSource) error {
	t.Helper()
	source.exhaust()

	o := New(testLogger(), opts)

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not terminate")
		return nil
	}
}

func TestFullRoundTypesEachSegmentInOrder(t *testing.T) {
	source := newScriptedSource(press(), release())
	recorder := &fakeRecorder{}
	transcriber := &fakeTranscriber{segments: []transcribe.Segment{
		{Text: "hello world"},
		{Text: "second segment"},
	}}
	typist := &fakeTypist{}

	err := runRound(t, Options{
		Source: source, Trigger: trigger, TriggerName: "KEY_RIGHTCTRL",
		Recorder: recorder, Transcriber: transcriber, Typist: typist,
	}, source)
	require.ErrorIs(t, err, errStreamDone)

	require.Equal(t, 1, recorder.startCalls)
	require.Equal(t, 1, recorder.stopCalls)
	require.Equal(t, []string{"/tmp/recorded_audio.wav"}, transcriber.paths)
	require.Equal(t, []string{"hello world", "second segment"}, typist.texts)
}

func TestRepeatedPressWhileRecordingIsIgnored(t *testing.T) {
	source := newScriptedSource(press(), press(), press(), release())
	recorder := &fakeRecorder{}
	transcriber := &fakeTranscriber{}

	err := runRound(t, Options{
		Source: source, Trigger: trigger,
		Recorder: recorder, Transcriber: transcriber, Typist: &fakeTypist{},
	}, source)
	require.ErrorIs(t, err, errStreamDone)

	require.Equal(t, 1, recorder.startCalls)
	require.Equal(t, 1, recorder.stopCalls)
}

func TestReleaseWhileIdleIsIgnored(t *testing.T) {
	source := newScriptedSource(release(), release())
	recorder := &fakeRecorder{}
	transcriber := &fakeTranscriber{}

	err := runRound(t, Options{
		Source: source, Trigger: trigger,
		Recorder: recorder, Transcriber: transcriber, Typist: &fakeTypist{},
	}, source)
	require.ErrorIs(t, err, errStreamDone)

	require.Zero(t, recorder.stopCalls)
	require.Zero(t, transcriber.calls)
}

func TestOtherKeysPassThrough(t *testing.T) {
	other := device.KeyEvent{Code: evdev.KEY_A, State: device.KeyDown}
	source := newScriptedSource(other, press(), other, release())
	recorder := &fakeRecorder{}

	err := runRound(t, Options{
		Source: source, Trigger: trigger,
		Recorder: recorder, Transcriber: &fakeTranscriber{}, Typist: &fakeTypist{},
	}, source)
	require.ErrorIs(t, err, errStreamDone)

	require.Equal(t, 1, recorder.startCalls)
	require.Equal(t, 1, recorder.stopCalls)
}

func TestStartFailureLeavesLoopReadyForNextRound(t *testing.T) {
	source := newScriptedSource(press(), release(), press(), release())
	recorder := &fakeRecorder{startErr: errors.New("arecord missing")}
	transcriber := &fakeTranscriber{}

	err := runRound(t, Options{
		Source: source, Trigger: trigger,
		Recorder: recorder, Transcriber: transcriber, Typist: &fakeTypist{},
	}, source)
	require.ErrorIs(t, err, errStreamDone)

	// Both presses attempt a fresh start; neither round reaches the recorder
	// stop or transcription because nothing was recording.
	require.Equal(t, 2, recorder.startCalls)
	require.Zero(t, recorder.stopCalls)
	require.Zero(t, transcriber.calls)
}

func TestStopFailureAbandonsRoundButRecovers(t *testing.T) {
	source := newScriptedSource(press(), release(), press(), release())
	recorder := &fakeRecorder{stopErr: errors.New("kill ceiling hit")}
	transcriber := &fakeTranscriber{segments: []transcribe.Segment{{Text: "ok"}}}
	typist := &fakeTypist{}

	err := runRound(t, Options{
		Source: source, Trigger: trigger,
		Recorder: recorder, Transcriber: transcriber, Typist: typist,
	}, source)
	require.ErrorIs(t, err, errStreamDone)

	// Neither round transcribes, but the second round still records.
	require.Equal(t, 2, recorder.startCalls)
	require.Equal(t, 2, recorder.stopCalls)
	require.Zero(t, transcriber.calls)
	require.Empty(t, typist.texts)
}

func TestTranscribeFailureSkipsTyping(t *testing.T) {
	source := newScriptedSource(press(), release(), press(), release())
	recorder := &fakeRecorder{}
	transcriber := &fakeTranscriber{err: errors.New("model exploded")}
	typist := &fakeTypist{}

	err := runRound(t, Options{
		Source: source, Trigger: trigger,
		Recorder: recorder, Transcriber: transcriber, Typist: typist,
	}, source)
	require.ErrorIs(t, err, errStreamDone)

	require.Equal(t, 2, transcriber.calls)
	require.Empty(t, typist.texts)
}

func TestTypeFailureDropsRemainingSegments(t *testing.T) {
	source := newScriptedSource(press(), release())
	transcriber := &fakeTranscriber{segments: []transcribe.Segment{
		{Text: "one"}, {Text: "two"}, {Text: "three"},
	}}
	typist := &fakeTypist{errOn: 2}

	err := runRound(t, Options{
		Source: source, Trigger: trigger,
		Recorder: &fakeRecorder{}, Transcriber: transcriber, Typist: typist,
	}, source)
	require.ErrorIs(t, err, errStreamDone)

	require.Equal(t, []string{"one", "two"}, typist.texts)
}

func TestEmptyTranscriptTypesNothing(t *testing.T) {
	source := newScriptedSource(press(), release())
	typist := &fakeTypist{}

	err := runRound(t, Options{
		Source: source, Trigger: trigger,
		Recorder: &fakeRecorder{}, Transcriber: &fakeTranscriber{}, Typist: typist,
	}, source)
	require.ErrorIs(t, err, errStreamDone)

	require.Empty(t, typist.texts)
}

func TestCancelWhileRecordingStopsRecorder(t *testing.T) {
	started := make(chan struct{})
	source := newScriptedSource(press())
	recorder := &fakeRecorder{started: started}

	o := New(testLogger(), Options{
		Source: source, Trigger: trigger,
		Recorder: recorder, Transcriber: &fakeTranscriber{}, Typist: &fakeTypist{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("recording never started")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not shut down")
	}
	require.Equal(t, 1, recorder.stopCalls)
}

func TestStreamFailureSurfacesError(t *testing.T) {
	source := newScriptedSource()
	source.exhaust()

	o := New(testLogger(), Options{
		Source: source, Trigger: trigger,
		Recorder: &fakeRecorder{}, Transcriber: &fakeTranscriber{}, Typist: &fakeTypist{},
	})

	err := o.Run(context.Background())
	require.ErrorIs(t, err, errStreamDone)
}

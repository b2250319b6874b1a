package transcribe

import (
	"errors"
	"fmt"
	"io"
	"os"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/guidov/intel-speech-to-text/internal/config"
)

// WhisperEngine runs whisper.cpp in-process. The model is loaded once at
// startup and shared across all dictation sessions; per-call decode state
// lives in a fresh context.
type WhisperEngine struct {
	model    whisper.Model
	language string
	threads  uint
}

// NewWhisperEngine loads the ggml model artifact selected by the config.
// Model size and numeric precision are encoded in the artifact file name.
func NewWhisperEngine(cfg config.ModelConfig) (*WhisperEngine, error) {
	path := cfg.ArtifactPath()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model artifact %q: %w", path, err)
	}

	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("load speech model %q: %w", path, err)
	}

	language := cfg.Language
	if language == "" {
		language = "auto"
	}

	return &WhisperEngine{
		model:    model,
		language: language,
		threads:  uint(cfg.Threads),
	}, nil
}

// Process decodes one utterance and drains its segments in order.
func (e *WhisperEngine) Process(samples []float32) (Info, []Segment, error) {
	wctx, err := e.model.NewContext()
	if err != nil {
		return Info{}, nil, fmt.Errorf("create decode context: %w", err)
	}

	wctx.SetTranslate(false)
	if e.threads > 0 {
		wctx.SetThreads(e.threads)
	}
	if e.model.IsMultilingual() {
		if err := wctx.SetLanguage(e.language); err != nil {
			return Info{}, nil, fmt.Errorf("set language %q: %w", e.language, err)
		}
	}

	if err := wctx.Process(samples, nil, nil); err != nil {
		return Info{}, nil, fmt.Errorf("decode audio: %w", err)
	}

	var segments []Segment
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Info{}, nil, fmt.Errorf("read segment: %w", err)
		}
		segments = append(segments, Segment{Text: segment.Text})
	}

	// The binding does not surface a language probability; zero means the
	// engine could not report confidence.
	return Info{Language: wctx.Language()}, segments, nil
}

// Close releases the shared model.
func (e *WhisperEngine) Close() error {
	return e.model.Close()
}

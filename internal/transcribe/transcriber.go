// Package transcribe converts finished audio artifacts into ordered text
// segments through a speech model shared across invocations.
package transcribe

import (
	"fmt"
	"log/slog"
	"strings"
)

// Segment is one unit of recognized text, trimmed and non-empty.
type Segment struct {
	Text string
}

// Info describes language detection for one transcription call.
type Info struct {
	Language    string
	Probability float32
}

// Engine is the in-process speech model boundary. Implementations are
// expensive to construct and must be reused across calls.
type Engine interface {
	Process(samples []float32) (Info, []Segment, error)
	Close() error
}

// Transcriber adapts the shared engine to audio artifacts on disk.
type Transcriber struct {
	logger *slog.Logger
	engine Engine
}

// New constructs a transcriber around an already-loaded engine.
func New(logger *slog.Logger, engine Engine) *Transcriber {
	return &Transcriber{logger: logger, engine: engine}
}

// Transcribe loads the artifact, downmixes it to mono, and runs the engine.
//
// Returned segments are trimmed and whitespace-only segments are dropped;
// order follows the model output. An empty result is not an error.
func (t *Transcriber) Transcribe(path string) ([]Segment, error) {
	samples, sampleRate, err := loadSamples(path)
	if err != nil {
		return nil, err
	}
	t.logger.Info("audio artifact loaded",
		"path", path,
		"sample_rate", sampleRate,
		"samples", len(samples),
	)

	info, raw, err := t.engine.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("speech model: %w", err)
	}
	t.logger.Info("language detected",
		"language", info.Language,
		"probability", info.Probability,
	)

	segments := make([]Segment, 0, len(raw))
	for _, segment := range raw {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		t.logger.Info("recognized segment", "text", text)
		segments = append(segments, Segment{Text: text})
	}
	return segments, nil
}

// Close releases the underlying engine.
func (t *Transcriber) Close() error {
	return t.engine.Close()
}

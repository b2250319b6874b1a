// Package config resolves, parses, validates, and defaults stt configuration.
package config

import (
	"path/filepath"
	"strings"
)

// Config is the fully materialized runtime configuration used by stt.
type Config struct {
	User    string
	Input   InputConfig
	Audio   AudioConfig
	Model   ModelConfig
	Typing  TypingConfig
	Session SessionConfig
	Log     LogConfig
}

// InputConfig controls trigger-key and raw input device selection.
type InputConfig struct {
	DevicePath string
	TriggerKey string
}

// AudioConfig controls the external recorder invocation and artifact location.
type AudioConfig struct {
	File       string
	SampleRate int
	Channels   int
	Format     string
	Device     string
	Binary     string
}

// ModelConfig selects the speech model artifact and decode options.
type ModelConfig struct {
	Dir       string
	Size      string
	Precision string
	Path      string
	Language  string
	Threads   int
}

// TypingConfig controls keystroke injection through the typing daemon.
type TypingConfig struct {
	Binary     string
	Socket     string
	KeyDelayMS int
}

// SessionConfig pins display handles for the target graphical session.
type SessionConfig struct {
	Display        string
	WaylandDisplay string
}

// LogConfig controls the optional rotating log file sink.
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// ArtifactPath resolves the ggml model file selected by the configuration.
//
// An explicit model.path wins; otherwise the file name is composed from
// size and precision under model.dir (precision is encoded in the ggml
// artifact name, e.g. ggml-small-q8_0.bin).
func (m ModelConfig) ArtifactPath() string {
	if strings.TrimSpace(m.Path) != "" {
		return m.Path
	}
	name := "ggml-" + strings.TrimSpace(m.Size)
	if precision := strings.TrimSpace(m.Precision); precision != "" {
		name += "-" + precision
	}
	return filepath.Join(m.Dir, name+".bin")
}

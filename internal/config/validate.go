package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
//
// The target user may legitimately be empty here (devices/doctor run without
// it); commands that spawn user-context subprocesses reject an empty user at
// startup instead.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Input.TriggerKey) == "" {
		return nil, fmt.Errorf("input.trigger_key must not be empty")
	}
	if !strings.HasPrefix(cfg.Input.TriggerKey, "KEY_") {
		return nil, fmt.Errorf("input.trigger_key must be an evdev key name such as KEY_RIGHTCTRL")
	}

	if strings.TrimSpace(cfg.Audio.File) == "" {
		return nil, fmt.Errorf("audio.file must not be empty")
	}
	if cfg.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("audio.sample_rate must be > 0")
	}
	if cfg.Audio.Channels <= 0 {
		return nil, fmt.Errorf("audio.channels must be > 0")
	}
	if strings.TrimSpace(cfg.Audio.Format) == "" {
		return nil, fmt.Errorf("audio.format must not be empty")
	}
	if strings.TrimSpace(cfg.Audio.Binary) == "" {
		return nil, fmt.Errorf("audio.binary must not be empty")
	}

	if strings.TrimSpace(cfg.Model.Path) == "" && strings.TrimSpace(cfg.Model.Size) == "" {
		return nil, fmt.Errorf("model.size must not be empty when model.path is unset")
	}
	if cfg.Model.Threads < 0 {
		return nil, fmt.Errorf("model.threads must be >= 0")
	}

	if strings.TrimSpace(cfg.Typing.Binary) == "" {
		return nil, fmt.Errorf("typing.binary must not be empty")
	}
	if cfg.Typing.KeyDelayMS < 0 {
		return nil, fmt.Errorf("typing.key_delay_ms must be >= 0")
	}

	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return nil, fmt.Errorf("log rotation limits must be >= 0")
	}

	if cfg.Audio.SampleRate != 16000 {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("audio.sample_rate %d differs from the 16000 Hz the model expects", cfg.Audio.SampleRate),
		})
	}

	return warnings, nil
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parse reads configuration content as a JSONC object applied over base defaults.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, errors.New("config must be a JSONC object (expected leading '{')")
	}

	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, fmt.Errorf("decode config: %w", err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, err
	}

	cfg := base
	payload.applyTo(&cfg)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, validatedWarnings, nil
}

type jsoncConfig struct {
	User    *string       `json:"user"`
	Input   *jsoncInput   `json:"input"`
	Audio   *jsoncAudio   `json:"audio"`
	Model   *jsoncModel   `json:"model"`
	Typing  *jsoncTyping  `json:"typing"`
	Session *jsoncSession `json:"session"`
	Log     *jsoncLog     `json:"log"`
}

type jsoncInput struct {
	DevicePath *string `json:"device_path"`
	TriggerKey *string `json:"trigger_key"`
}

type jsoncAudio struct {
	File       *string `json:"file"`
	SampleRate *int    `json:"sample_rate"`
	Channels   *int    `json:"channels"`
	Format     *string `json:"format"`
	Device     *string `json:"device"`
	Binary     *string `json:"binary"`
}

type jsoncModel struct {
	Dir       *string `json:"dir"`
	Size      *string `json:"size"`
	Precision *string `json:"precision"`
	Path      *string `json:"path"`
	Language  *string `json:"language"`
	Threads   *int    `json:"threads"`
}

type jsoncTyping struct {
	Binary     *string `json:"binary"`
	Socket     *string `json:"socket"`
	KeyDelayMS *int    `json:"key_delay_ms"`
}

type jsoncSession struct {
	Display        *string `json:"display"`
	WaylandDisplay *string `json:"wayland_display"`
}

type jsoncLog struct {
	File       *string `json:"file"`
	MaxSizeMB  *int    `json:"max_size_mb"`
	MaxBackups *int    `json:"max_backups"`
	MaxAgeDays *int    `json:"max_age_days"`
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if payload.User != nil {
		cfg.User = strings.TrimSpace(*payload.User)
	}

	if payload.Input != nil {
		if payload.Input.DevicePath != nil {
			cfg.Input.DevicePath = strings.TrimSpace(*payload.Input.DevicePath)
		}
		if payload.Input.TriggerKey != nil {
			cfg.Input.TriggerKey = strings.TrimSpace(*payload.Input.TriggerKey)
		}
	}

	if payload.Audio != nil {
		if payload.Audio.File != nil {
			cfg.Audio.File = strings.TrimSpace(*payload.Audio.File)
		}
		if payload.Audio.SampleRate != nil {
			cfg.Audio.SampleRate = *payload.Audio.SampleRate
		}
		if payload.Audio.Channels != nil {
			cfg.Audio.Channels = *payload.Audio.Channels
		}
		if payload.Audio.Format != nil {
			cfg.Audio.Format = strings.TrimSpace(*payload.Audio.Format)
		}
		if payload.Audio.Device != nil {
			cfg.Audio.Device = strings.TrimSpace(*payload.Audio.Device)
		}
		if payload.Audio.Binary != nil {
			cfg.Audio.Binary = strings.TrimSpace(*payload.Audio.Binary)
		}
	}

	if payload.Model != nil {
		if payload.Model.Dir != nil {
			cfg.Model.Dir = strings.TrimSpace(*payload.Model.Dir)
		}
		if payload.Model.Size != nil {
			cfg.Model.Size = strings.TrimSpace(*payload.Model.Size)
		}
		if payload.Model.Precision != nil {
			cfg.Model.Precision = strings.TrimSpace(*payload.Model.Precision)
		}
		if payload.Model.Path != nil {
			cfg.Model.Path = strings.TrimSpace(*payload.Model.Path)
		}
		if payload.Model.Language != nil {
			cfg.Model.Language = strings.TrimSpace(*payload.Model.Language)
		}
		if payload.Model.Threads != nil {
			cfg.Model.Threads = *payload.Model.Threads
		}
	}

	if payload.Typing != nil {
		if payload.Typing.Binary != nil {
			cfg.Typing.Binary = strings.TrimSpace(*payload.Typing.Binary)
		}
		if payload.Typing.Socket != nil {
			cfg.Typing.Socket = strings.TrimSpace(*payload.Typing.Socket)
		}
		if payload.Typing.KeyDelayMS != nil {
			cfg.Typing.KeyDelayMS = *payload.Typing.KeyDelayMS
		}
	}

	if payload.Session != nil {
		if payload.Session.Display != nil {
			cfg.Session.Display = strings.TrimSpace(*payload.Session.Display)
		}
		if payload.Session.WaylandDisplay != nil {
			cfg.Session.WaylandDisplay = strings.TrimSpace(*payload.Session.WaylandDisplay)
		}
	}

	if payload.Log != nil {
		if payload.Log.File != nil {
			cfg.Log.File = strings.TrimSpace(*payload.Log.File)
		}
		if payload.Log.MaxSizeMB != nil {
			cfg.Log.MaxSizeMB = *payload.Log.MaxSizeMB
		}
		if payload.Log.MaxBackups != nil {
			cfg.Log.MaxBackups = *payload.Log.MaxBackups
		}
		if payload.Log.MaxAgeDays != nil {
			cfg.Log.MaxAgeDays = *payload.Log.MaxAgeDays
		}
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	if _, err := decoder.Token(); err != io.EOF {
		return errors.New("config contains trailing content after the JSONC object")
	}
	return nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) {
				next := content[j]
				if next == ' ' || next == '\t' || next == '\n' || next == '\r' {
					j++
					continue
				}
				break
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				out.WriteByte(' ')
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

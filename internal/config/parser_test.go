package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsDefaults(t *testing.T) {
	cfg, warnings, err := Parse("", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseOverlaysDefaults(t *testing.T) {
	content := `{
		// dictation target
		"user": "micha",
		"input": {
			"device_path": "/dev/input/event4",
			"trigger_key": "KEY_RIGHTALT",
		},
		"audio": { "sample_rate": 16000, "channels": 2 },
		"model": { "size": "medium", "precision": "q8_0", "threads": 4 },
		"typing": { "key_delay_ms": 0 },
	}`

	cfg, warnings, err := Parse(content, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "micha", cfg.User)
	require.Equal(t, "/dev/input/event4", cfg.Input.DevicePath)
	require.Equal(t, "KEY_RIGHTALT", cfg.Input.TriggerKey)
	require.Equal(t, 2, cfg.Audio.Channels)
	require.Equal(t, "medium", cfg.Model.Size)
	require.Equal(t, 4, cfg.Model.Threads)
	require.Equal(t, 0, cfg.Typing.KeyDelayMS)

	// Untouched sections keep their defaults.
	require.Equal(t, Default().Audio.File, cfg.Audio.File)
	require.Equal(t, Default().Session, cfg.Session)
}

func TestParseStripsBlockCommentsAndTrailingCommas(t *testing.T) {
	content := `{
		/* pinned for the USB keyboard that
		   survives reboots */
		"input": { "trigger_key": "KEY_PAUSE" },
	}`

	cfg, _, err := Parse(content, Default())
	require.NoError(t, err)
	require.Equal(t, "KEY_PAUSE", cfg.Input.TriggerKey)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, _, err := Parse(`{"keyboard": "/dev/input/event1"}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseRejectsNonObjectContent(t *testing.T) {
	_, _, err := Parse(`trigger_key = KEY_RIGHTCTRL`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "JSONC object")
}

func TestParseRejectsTrailingContent(t *testing.T) {
	_, _, err := Parse(`{"user": "micha"} {"user": "other"}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "trailing content")
}

func TestParseWarnsOnNonModelSampleRate(t *testing.T) {
	cfg, warnings, err := Parse(`{"audio": {"sample_rate": 44100}}`, Default())
	require.NoError(t, err)
	require.Equal(t, 44100, cfg.Audio.SampleRate)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "16000")
}

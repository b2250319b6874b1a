package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		User: "",
		Input: InputConfig{
			DevicePath: "",
			TriggerKey: "KEY_RIGHTCTRL",
		},
		Audio: AudioConfig{
			File:       "/tmp/recorded_audio.wav",
			SampleRate: 16000,
			Channels:   1,
			Format:     "S16_LE",
			Device:     "",
			Binary:     "arecord",
		},
		Model: ModelConfig{
			Dir:       "/usr/local/share/stt/models",
			Size:      "small",
			Precision: "",
			Path:      "",
			Language:  "auto",
			Threads:   0,
		},
		Typing: TypingConfig{
			Binary:     "ydotool",
			Socket:     "",
			KeyDelayMS: 12,
		},
		Session: SessionConfig{
			Display:        ":0",
			WaylandDisplay: "",
		},
		Log: LogConfig{
			File:       "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

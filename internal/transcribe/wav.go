package transcribe

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// loadSamples reads a WAV artifact into normalized mono float32 samples.
//
// Multi-channel audio is downmixed by averaging channels, matching what the
// speech model expects.
func loadSamples(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open audio artifact: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat audio artifact: %w", err)
	}
	if stat.Size() == 0 {
		return nil, 0, fmt.Errorf("audio artifact %q is empty", path)
	}

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode audio artifact %q: %w", path, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("audio artifact %q holds no frames", path)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for frame := 0; frame < frames; frame++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(buf.Data[frame*channels+ch]) / scale
		}
		samples[frame] = sum / float32(channels)
	}

	return samples, buf.Format.SampleRate, nil
}

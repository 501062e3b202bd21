package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

var (
	soxOnce      sync.Once
	soxAvailable bool
)

// CheckSox reports whether sox is in PATH. The lookup runs once.
func CheckSox() bool {
	soxOnce.Do(func() {
		_, err := exec.LookPath("sox")
		soxAvailable = err == nil
	})
	return soxAvailable
}

// Preprocess resamples audio to 16kHz mono with a voice bandpass and volume
// normalization so consultation speech reaches Whisper at a consistent level.
// ext is the input file extension (".wav", ".mp3", ...), which sox uses to
// pick a decoder. Returns WAV bytes, or the input unchanged if sox is missing.
func Preprocess(ctx context.Context, audio []byte, ext string) ([]byte, error) {
	if !CheckSox() {
		return audio, nil
	}

	in, err := os.CreateTemp("", "clinic-engine-in-*"+ext)
	if err != nil {
		return audio, fmt.Errorf("create temp input: %w", err)
	}
	defer os.Remove(in.Name())
	if _, err := in.Write(audio); err != nil {
		in.Close()
		return audio, fmt.Errorf("write temp input: %w", err)
	}
	in.Close()

	out, err := os.CreateTemp("", "clinic-engine-out-*.wav")
	if err != nil {
		return audio, fmt.Errorf("create temp output: %w", err)
	}
	out.Close()
	defer os.Remove(out.Name())

	cmd := exec.CommandContext(ctx, "sox",
		in.Name(), out.Name(),
		"rate", "16000",
		"channels", "1",
		"sinc", "100-7000",
		"norm",
	)
	if err := cmd.Run(); err != nil {
		return audio, fmt.Errorf("sox preprocess: %w", err)
	}

	processed, err := os.ReadFile(out.Name())
	if err != nil {
		return audio, fmt.Errorf("read preprocessed audio: %w", err)
	}
	return processed, nil
}

package transcribe

import (
	"context"
	"fmt"
	"time"
)

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (*Response, error)
	Name() string  // "whisper", "deepinfra", "elevenlabs"
	Model() string // model identifier for logs
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds
	Segments []Segment
}

// Segment is a coarse, time-bounded chunk of provider output.
type Segment struct {
	Start float64 // seconds
	End   float64 // seconds
	Text  string
}

// Options selects and configures a provider.
type Options struct {
	Provider string // "whisper" (default), "deepinfra" or "elevenlabs"
	URL      string
	Model    string
	APIKey   string
	Language string
	Keyterms string // comma-separated vocabulary boost, elevenlabs only
	Timeout  time.Duration
}

// New builds the provider named in opts.
func New(opts Options) (Provider, error) {
	switch opts.Provider {
	case "", "whisper":
		return NewWhisperClient(opts.URL, opts.Model, opts.APIKey, opts.Language, opts.Timeout), nil
	case "deepinfra":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("deepinfra provider requires an API key")
		}
		return NewDeepInfraClient(opts.APIKey, opts.Model, opts.Timeout), nil
	case "elevenlabs":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("elevenlabs provider requires an API key")
		}
		return NewElevenLabsClient(opts.APIKey, opts.Model, opts.Language, opts.Keyterms, opts.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", opts.Provider)
	}
}

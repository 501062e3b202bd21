package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/clinic-engine/internal/config"
)

var (
	// ErrNotFound is returned by Open when no backend holds the key.
	ErrNotFound = errors.New("audio not found")
	// ErrInvalidKey is returned for keys that are empty or escape the store root.
	ErrInvalidKey = errors.New("invalid audio key")
)

// AudioStore abstracts audio file storage backends.
type AudioStore interface {
	// Save stores audio data under key, replacing any existing object.
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// Open returns a reader for the audio file, or ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the audio file. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if an audio file exists in any backend.
	Exists(ctx context.Context, key string) bool

	// LocalPath returns the local filesystem path if the file exists on disk.
	// Returns "" if not available locally.
	LocalPath(key string) string

	// Type returns "local", "s3", or "tiered".
	Type() string
}

// New creates an AudioStore based on config. Returns an error if S3 is
// configured but unreachable.
func New(cfg config.S3Config, audioDir string, log zerolog.Logger) (AudioStore, error) {
	if !cfg.Enabled() {
		log.Info().Str("dir", audioDir).Msg("using local audio store")
		return NewLocalStore(audioDir), nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	if !cfg.LocalCache {
		return s3store, nil
	}
	return NewTieredStore(s3store, NewLocalStore(audioDir), log), nil
}

// AppointmentKey returns the storage key for an appointment's consultation
// audio. ext keeps the uploaded file's extension; ".webm" is used when the
// upload had none.
func AppointmentKey(appointmentID int64, ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." || strings.ContainsAny(ext, `/\`) {
		ext = ".webm"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("appointment-%d%s", appointmentID, ext)
}

// cleanKey rejects keys that are empty, absolute or contain parent references.
func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	c := path.Clean(key)
	if c == "." || path.IsAbs(c) || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrInvalidKey
	}
	return c, nil
}

var audioContentTypes = map[string]string{
	".webm": "audio/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// ContentType returns the MIME type for an audio key, falling back to
// application/octet-stream.
func ContentType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := audioContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

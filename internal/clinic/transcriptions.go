package clinic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/snarg/clinic-engine/internal/metrics"
	"github.com/snarg/clinic-engine/internal/model"
	"github.com/snarg/clinic-engine/internal/storage"
	"github.com/snarg/clinic-engine/internal/summarize"
	"github.com/snarg/clinic-engine/internal/transcribe"
)

// UploadRequest carries one consultation recording.
type UploadRequest struct {
	AppointmentID int64
	Filename      string
	Audio         []byte
	Type          model.AppointmentType
	// Bullets are the rubric labels for TypeSpecial; ignored otherwise.
	Bullets []string
}

type UploadResult struct {
	Summary    string           `json:"summary"`
	Transcript []model.Sentence `json:"transcript"`
}

func (r *UploadRequest) validate() error {
	if r.AppointmentID <= 0 {
		return invalid("appointment_id is required")
	}
	if len(r.Audio) == 0 {
		return invalid("audio file is empty")
	}
	if r.Type == "" {
		return invalid("appointment_type is required")
	}
	if _, err := model.ParseAppointmentType(string(r.Type)); err != nil {
		return invalid("%v", err)
	}
	if r.Type == model.TypeSpecial && len(r.Bullets) == 0 {
		return invalid("bullet_list is required for special appointments")
	}
	return nil
}

// ReplaceTranscription supersedes the appointment's live transcription with
// one produced from req.Audio. Prior transcriptions and their audio are
// purged before the new recording is processed; the purge is not undone if
// processing fails. On success the appointment's type is set to req.Type.
func (s *Service) ReplaceTranscription(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetAppointment(ctx, req.AppointmentID); err != nil {
		return nil, err
	}

	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	log := s.log.With().Int64("appointment_id", req.AppointmentID).Str("type", string(req.Type)).Logger()

	res, err := s.replaceTranscription(ctx, req)
	metrics.TranscriptionsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		log.Error().Err(err).Msg("transcription failed")
		return nil, err
	}
	log.Info().Int("sentences", len(res.Transcript)).Msg("transcription stored")
	return res, nil
}

func (s *Service) replaceTranscription(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	id := req.AppointmentID

	start := time.Now()
	old, err := s.store.DeleteTranscriptions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("purge transcriptions: %w", err)
	}
	s.removeAudio(ctx, old)
	metrics.ObserveStage("purge", start)

	ext := filepath.Ext(req.Filename)
	key := storage.AppointmentKey(id, ext)
	start = time.Now()
	if err := s.audio.Save(ctx, key, req.Audio, storage.ContentType(key)); err != nil {
		return nil, fmt.Errorf("save audio: %w", err)
	}
	metrics.ObserveStage("store_audio", start)

	sentences, err := s.transcribe(ctx, key, req.Audio)
	if err != nil {
		s.removeAudio(ctx, []string{key})
		return nil, err
	}

	start = time.Now()
	summary, err := s.summarizer.Summarize(ctx, summarize.JoinTranscript(sentences), req.Type, req.Bullets)
	metrics.RemoteRequestsTotal.WithLabelValues("llm", metrics.Outcome(err)).Inc()
	if err != nil {
		s.removeAudio(ctx, []string{key})
		return nil, fmt.Errorf("%w: summarize: %w", ErrUpstream, err)
	}
	metrics.ObserveStage("summarize", start)

	start = time.Now()
	t := &model.Transcription{
		AppointmentID: id,
		AudioPath:     key,
		Transcript:    sentences,
		Summary:       summary,
	}
	if _, err := s.store.ReplaceTranscription(ctx, t, req.Type); err != nil {
		s.removeAudio(ctx, []string{key})
		return nil, storeErr(err, fmt.Sprintf("appointment %d", id))
	}
	metrics.ObserveStage("persist", start)

	s.publish(transcriptionTopic(id), TranscriptionEvent{
		AppointmentID:   id,
		TranscriptionID: t.ID,
		AppointmentType: req.Type,
		Sentences:       len(sentences),
		CreatedAt:       t.CreatedAt,
	})

	return &UploadResult{Summary: summary, Transcript: sentences}, nil
}

// transcribe runs optional preprocessing and the speech-to-text call, then
// splits the segments into sentences.
func (s *Service) transcribe(ctx context.Context, key string, audio []byte) ([]model.Sentence, error) {
	if s.preprocess != nil {
		start := time.Now()
		processed, err := s.preprocess(ctx, audio, filepath.Ext(key))
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("audio preprocessing failed, using original")
		} else {
			audio = processed
		}
		metrics.ObserveStage("preprocess", start)
	}

	start := time.Now()
	resp, err := s.stt.Transcribe(ctx, key, audio)
	metrics.RemoteRequestsTotal.WithLabelValues("stt", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("%w: transcribe: %w", ErrUpstream, err)
	}
	metrics.ObserveStage("transcribe", start)

	return transcribe.Sentences(resp.Segments), nil
}

// GetTranscription returns the live transcription of an appointment.
func (s *Service) GetTranscription(ctx context.Context, appointmentID int64) (*model.Transcription, error) {
	t, err := s.store.GetTranscription(ctx, appointmentID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("transcription for appointment %d", appointmentID))
	}
	return t, nil
}

// OpenAudio opens the audio of the appointment's live transcription. The
// caller must close the reader. The key is returned for content-type
// detection.
func (s *Service) OpenAudio(ctx context.Context, appointmentID int64) (io.ReadCloser, string, error) {
	t, err := s.GetTranscription(ctx, appointmentID)
	if err != nil {
		return nil, "", err
	}
	if t.AudioPath == "" {
		return nil, "", fmt.Errorf("audio for appointment %d: %w", appointmentID, ErrNotFound)
	}
	r, err := s.audio.Open(ctx, t.AudioPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", fmt.Errorf("audio for appointment %d: %w", appointmentID, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	return r, t.AudioPath, nil
}

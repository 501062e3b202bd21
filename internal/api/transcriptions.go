package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snarg/clinic-engine/internal/clinic"
	"github.com/snarg/clinic-engine/internal/model"
	"github.com/snarg/clinic-engine/internal/storage"
	"github.com/snarg/clinic-engine/internal/summarize"
)

type TranscriptionService interface {
	ReplaceTranscription(ctx context.Context, req clinic.UploadRequest) (*clinic.UploadResult, error)
	GetTranscription(ctx context.Context, appointmentID int64) (*model.Transcription, error)
	OpenAudio(ctx context.Context, appointmentID int64) (io.ReadCloser, string, error)
}

// TranscriptionsHandler serves consultation uploads and their results.
type TranscriptionsHandler struct {
	svc            TranscriptionService
	maxUploadBytes int64
	log            zerolog.Logger
}

func NewTranscriptionsHandler(svc TranscriptionService, maxUploadBytes int64, log zerolog.Logger) *TranscriptionsHandler {
	return &TranscriptionsHandler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("handler", "transcriptions").Logger(),
	}
}

// Routes registers the read endpoints. Upload is registered separately so
// the server can rate-limit it.
func (h *TranscriptionsHandler) Routes(r chi.Router) {
	r.Get("/transcription/{appointmentId}", h.Get)
	r.Get("/audio/{appointmentId}", h.Audio)
}

// TranscriptionResponse is the body of GET /transcription/{appointmentId}.
// AudioPath is relative to the server root.
type TranscriptionResponse struct {
	AppointmentID int64            `json:"appointment_id"`
	Transcript    []model.Sentence `json:"transcript"`
	Summary       string           `json:"summary"`
	AudioPath     string           `json:"audio_path"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Upload handles POST /upload: a multipart form with appointment_id, file,
// appointment_type and, for special appointments, bullet_list (a JSON array
// of labels).
func (h *TranscriptionsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorDetail(w, http.StatusRequestEntityTooLarge, "upload too large",
				fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
			return
		}
		WriteServiceError(w, r, badInput("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := h.uploadRequest(r)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	res, err := h.svc.ReplaceTranscription(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *TranscriptionsHandler) uploadRequest(r *http.Request) (clinic.UploadRequest, error) {
	var req clinic.UploadRequest
	id, err := formInt64(r, "appointment_id")
	if err != nil {
		return req, err
	}
	typ, err := model.ParseAppointmentType(formString(r, "appointment_type"))
	if err != nil {
		return req, badInput("%v", err)
	}

	var bullets []string
	if typ == model.TypeSpecial {
		bullets, err = summarize.ParseBulletList(r.FormValue("bullet_list"))
		if err != nil {
			return req, badInput("%v", err)
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return req, badInput("file is required")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return req, badInput("failed to read audio file")
	}

	return clinic.UploadRequest{
		AppointmentID: id,
		Filename:      header.Filename,
		Audio:         data,
		Type:          typ,
		Bullets:       bullets,
	}, nil
}

// Get handles GET /transcription/{appointmentId}.
func (h *TranscriptionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PathInt64(r, "appointmentId")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	t, err := h.svc.GetTranscription(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, TranscriptionResponse{
		AppointmentID: t.AppointmentID,
		Transcript:    t.Transcript,
		Summary:       t.Summary,
		AudioPath:     fmt.Sprintf("audio/%d", t.AppointmentID),
		CreatedAt:     t.CreatedAt,
	})
}

// Audio handles GET /audio/{appointmentId}, streaming the live
// transcription's recording. Seekable backends get range support.
func (h *TranscriptionsHandler) Audio(w http.ResponseWriter, r *http.Request) {
	id, err := PathInt64(r, "appointmentId")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	rc, key, err := h.svc.OpenAudio(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", storage.ContentType(key))

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, key, time.Time{}, rs)
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn().Err(err).Int64("appointment_id", id).Msg("audio stream interrupted")
	}
}

package clinic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snarg/clinic-engine/internal/model"
	"github.com/snarg/clinic-engine/internal/transcribe"
)

var consultationSegments = []transcribe.Segment{
	{Start: 0, End: 4, Text: "Hello there. Welcome back."},
	{Start: 4, End: 6, Text: "Any issues today?"},
}

func TestReplaceTranscription_ConsultationExample(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.seedAppointment(t)
	h.stt.segments = consultationSegments
	h.llm.reply = "- Purpose of visit: follow-up"

	res, err := h.svc.ReplaceTranscription(ctx, UploadRequest{
		AppointmentID: id,
		Filename:      "visit.webm",
		Audio:         []byte("audio"),
		Type:          model.TypeContacts,
	})
	require.NoError(t, err)

	want := []model.Sentence{
		{Start: 0, Text: "Hello there."},
		{Start: 2, Text: "Welcome back."},
		{Start: 4, Text: "Any issues today?"},
	}
	assert.Equal(t, want, res.Transcript)
	assert.Equal(t, "- Purpose of visit: follow-up", res.Summary)

	require.Len(t, h.llm.calls, 1)
	assert.Equal(t, model.TypeContacts, h.llm.calls[0].typ)
	assert.Equal(t, "Hello there. Welcome back. Any issues today?", h.llm.calls[0].transcript)

	a, err := h.svc.GetAppointment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.TypeContacts, a.Type, "upload writes the category back onto the appointment")

	got, err := h.svc.GetTranscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want, got.Transcript)
	assert.Equal(t, res.Summary, got.Summary)
	assert.Equal(t, fmt.Sprintf("appointment-%d.webm", id), got.AudioPath)
	assert.Contains(t, h.events.topics, transcriptionTopic(id))
}

func TestReplaceTranscription_IdempotentInEffectCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.seedAppointment(t)
	h.stt.segments = consultationSegments

	_, err := h.svc.ReplaceTranscription(ctx, UploadRequest{AppointmentID: id, Filename: "first.webm", Audio: []byte("one"), Type: model.TypeRoutine})
	require.NoError(t, err)
	_, err = h.svc.ReplaceTranscription(ctx, UploadRequest{AppointmentID: id, Filename: "second.wav", Audio: []byte("two"), Type: model.TypeGlasses})
	require.NoError(t, err)

	assert.Equal(t, 1, h.store.transcriptionCount(id))
	keys := h.audio.keys()
	require.Len(t, keys, 1, "old audio must be purged")

	r, key, err := h.svc.OpenAudio(ctx, id)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assert.Equal(t, keys[0], key)

	a, err := h.svc.GetAppointment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.TypeGlasses, a.Type)
}

func TestReplaceTranscription_SpecialBullets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.seedAppointment(t)
	h.stt.segments = consultationSegments

	_, err := h.svc.ReplaceTranscription(ctx, UploadRequest{
		AppointmentID: id, Filename: "a.webm", Audio: []byte("x"),
		Type: model.TypeSpecial, Bullets: []string{"A", "B"},
	})
	require.NoError(t, err)
	require.Len(t, h.llm.calls, 1)
	assert.Equal(t, []string{"A", "B"}, h.llm.calls[0].bullets)
}

func TestReplaceTranscription_RejectsBeforeMutating(t *testing.T) {
	tests := []struct {
		name string
		req  func(id int64) UploadRequest
		want error
	}{
		{"special_without_bullets", func(id int64) UploadRequest {
			return UploadRequest{AppointmentID: id, Audio: []byte("x"), Type: model.TypeSpecial}
		}, ErrInvalidInput},
		{"unknown_type", func(id int64) UploadRequest {
			return UploadRequest{AppointmentID: id, Audio: []byte("x"), Type: "checkup"}
		}, ErrInvalidInput},
		{"missing_type", func(id int64) UploadRequest {
			return UploadRequest{AppointmentID: id, Audio: []byte("x")}
		}, ErrInvalidInput},
		{"empty_audio", func(id int64) UploadRequest {
			return UploadRequest{AppointmentID: id, Type: model.TypeRoutine}
		}, ErrInvalidInput},
		{"unknown_appointment", func(id int64) UploadRequest {
			return UploadRequest{AppointmentID: id + 100, Audio: []byte("x"), Type: model.TypeRoutine}
		}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			id := h.seedAppointment(t)
			h.stt.segments = consultationSegments
			_, err := h.svc.ReplaceTranscription(ctx, UploadRequest{AppointmentID: id, Filename: "a.webm", Audio: []byte("keep"), Type: model.TypeRoutine})
			require.NoError(t, err)
			h.stt.calls = 0

			_, err = h.svc.ReplaceTranscription(ctx, tt.req(id))
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, h.stt.calls, "no remote call on rejected input")
			assert.Equal(t, 1, h.store.transcriptionCount(id), "existing transcription untouched")
			assert.Len(t, h.audio.keys(), 1)
		})
	}
}

func TestReplaceTranscription_UpstreamFailure(t *testing.T) {
	t.Run("speech_to_text", func(t *testing.T) {
		h := newHarness(t)
		id := h.seedAppointment(t)
		h.stt.err = errors.New("503 from provider")

		_, err := h.svc.ReplaceTranscription(context.Background(), UploadRequest{AppointmentID: id, Audio: []byte("x"), Type: model.TypeRoutine})
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Empty(t, h.llm.calls)
		assert.Empty(t, h.audio.keys(), "new audio removed on failure")
		assert.Zero(t, h.store.transcriptionCount(id))
	})

	t.Run("summarizer", func(t *testing.T) {
		h := newHarness(t)
		id := h.seedAppointment(t)
		h.stt.segments = consultationSegments
		h.llm.err = errors.New("rate limited")

		_, err := h.svc.ReplaceTranscription(context.Background(), UploadRequest{AppointmentID: id, Audio: []byte("x"), Type: model.TypeRoutine})
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Empty(t, h.audio.keys())
		assert.Zero(t, h.store.transcriptionCount(id))
	})
}

func TestReplaceTranscription_PersistFailureRemovesAudio(t *testing.T) {
	h := newHarness(t)
	id := h.seedAppointment(t)
	h.stt.segments = consultationSegments
	h.store.replaceErr = errors.New("connection reset")

	_, err := h.svc.ReplaceTranscription(context.Background(), UploadRequest{
		AppointmentID: id,
		Filename:      "visit.wav",
		Audio:         []byte("x"),
		Type:          model.TypeRoutine,
	})
	require.Error(t, err)
	assert.Empty(t, h.audio.keys(), "audio saved for a failed write must not linger")
	assert.Zero(t, h.store.transcriptionCount(id))
}

func TestReplaceTranscription_PublishFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	id := h.seedAppointment(t)
	h.stt.segments = consultationSegments
	h.events.err = errors.New("broker down")

	_, err := h.svc.ReplaceTranscription(context.Background(), UploadRequest{AppointmentID: id, Audio: []byte("x"), Type: model.TypeRoutine})
	assert.NoError(t, err)
}

func TestGetTranscription_NotFound(t *testing.T) {
	h := newHarness(t)
	id := h.seedAppointment(t)

	_, err := h.svc.GetTranscription(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = h.svc.OpenAudio(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenAudio_BlobMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.seedAppointment(t)
	h.stt.segments = consultationSegments
	_, err := h.svc.ReplaceTranscription(ctx, UploadRequest{AppointmentID: id, Audio: []byte("x"), Type: model.TypeRoutine})
	require.NoError(t, err)

	for _, k := range h.audio.keys() {
		require.NoError(t, h.audio.Delete(ctx, k))
	}
	_, _, err = h.svc.OpenAudio(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInFlightTranscriptions(t *testing.T) {
	h := newHarness(t)
	assert.Zero(t, h.svc.InFlightTranscriptions())
}

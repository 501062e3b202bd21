package clinic

import (
	"fmt"
	"time"

	"github.com/snarg/clinic-engine/internal/metrics"
	"github.com/snarg/clinic-engine/internal/model"
)

// TranscriptionEvent is published after a recording has been transcribed
// and summarized.
type TranscriptionEvent struct {
	AppointmentID   int64                 `json:"appointment_id"`
	TranscriptionID int64                 `json:"transcription_id"`
	AppointmentType model.AppointmentType `json:"appointment_type"`
	Sentences       int                   `json:"sentences"`
	CreatedAt       time.Time             `json:"created_at"`
}

// AppointmentDeletedEvent is published after an appointment and its
// transcriptions were removed.
type AppointmentDeletedEvent struct {
	AppointmentID int64 `json:"appointment_id"`
	AudioRemoved  int   `json:"audio_removed"`
}

func transcriptionTopic(appointmentID int64) string {
	return fmt.Sprintf("appointments/%d/transcription", appointmentID)
}

func deletedTopic(appointmentID int64) string {
	return fmt.Sprintf("appointments/%d/deleted", appointmentID)
}

// publish is best effort: failures are logged and counted, never returned.
func (s *Service) publish(topic string, payload any) {
	if s.events == nil {
		return
	}
	err := s.events.PublishJSON(topic, payload)
	metrics.EventsPublishedTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}

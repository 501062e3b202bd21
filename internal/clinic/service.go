// Package clinic implements the clinic's directory (doctors, patients,
// appointments) and the transcription record store on top of the database,
// the audio store and the remote speech-to-text and language model services.
package clinic

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/snarg/clinic-engine/internal/database"
	"github.com/snarg/clinic-engine/internal/model"
	"github.com/snarg/clinic-engine/internal/transcribe"
)

// Store is the persistence contract. *database.DB implements it; lookups of
// missing rows return database.ErrNotFound and unique violations
// database.ErrDuplicate.
type Store interface {
	CreateDoctor(ctx context.Context, d *model.Doctor) (int64, error)
	GetDoctor(ctx context.Context, id int64) (*model.Doctor, error)
	GetDoctorByEmail(ctx context.Context, email string) (*model.Doctor, error)
	EmailInUse(ctx context.Context, email string, excludeID int64) (bool, error)
	UpdateDoctor(ctx context.Context, d *model.Doctor) error
	UpdateDoctorPassword(ctx context.Context, id int64, hash string) error
	ListDoctors(ctx context.Context) ([]model.Doctor, error)

	CreatePatient(ctx context.Context, p *model.Patient) (int64, error)
	GetPatient(ctx context.Context, id int64) (*model.Patient, error)
	UpdatePatient(ctx context.Context, p *model.Patient) error
	ListPatients(ctx context.Context) ([]model.Patient, error)

	CreateAppointment(ctx context.Context, a *model.Appointment) (int64, error)
	GetAppointment(ctx context.Context, id int64) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id int64, status model.AppointmentStatus) error
	UpdateAppointmentType(ctx context.Context, id int64, t model.AppointmentType) error
	UpdateAppointmentNotes(ctx context.Context, id int64, notes string) error
	ListAppointments(ctx context.Context, f database.AppointmentFilter) ([]model.AppointmentView, error)
	DeleteAppointment(ctx context.Context, id int64) ([]string, error)

	DeleteTranscriptions(ctx context.Context, appointmentID int64) ([]string, error)
	ReplaceTranscription(ctx context.Context, t *model.Transcription, typ model.AppointmentType) (int64, error)
	GetTranscription(ctx context.Context, appointmentID int64) (*model.Transcription, error)
}

// AudioStore is the subset of storage.AudioStore the service needs.
type AudioStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Transcriber turns audio into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (*transcribe.Response, error)
}

// Summarizer writes a summary of a transcript for an appointment type.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, t model.AppointmentType, bullets []string) (string, error)
}

// EventPublisher delivers domain events. *mqttclient.Client implements it.
type EventPublisher interface {
	PublishJSON(topic string, payload any) error
}

// Deps wires the service's collaborators. Events may be nil.
type Deps struct {
	Store           Store
	Audio           AudioStore
	Transcriber     Transcriber
	Summarizer      Summarizer
	Events          EventPublisher
	PreprocessAudio bool
	Log             zerolog.Logger
}

type Service struct {
	store      Store
	audio      AudioStore
	stt        Transcriber
	summarizer Summarizer
	events     EventPublisher
	preprocess func(ctx context.Context, audio []byte, ext string) ([]byte, error)
	log        zerolog.Logger

	inFlight atomic.Int64
}

func New(d Deps) *Service {
	s := &Service{
		store:      d.Store,
		audio:      d.Audio,
		stt:        d.Transcriber,
		summarizer: d.Summarizer,
		events:     d.Events,
		log:        d.Log.With().Str("component", "clinic").Logger(),
	}
	if d.PreprocessAudio {
		s.preprocess = transcribe.Preprocess
	}
	return s
}

// InFlightTranscriptions reports uploads currently being processed.
func (s *Service) InFlightTranscriptions() int {
	return int(s.inFlight.Load())
}

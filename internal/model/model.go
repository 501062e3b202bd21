package model

import (
	"fmt"
	"time"
)

// AppointmentType is the visit category. It selects the summary rubric.
type AppointmentType string

const (
	TypeRoutine     AppointmentType = "routine"
	TypeContacts    AppointmentType = "contacts"
	TypePostSurgery AppointmentType = "postsurgery"
	TypeSpecial     AppointmentType = "special"
	TypeGlasses     AppointmentType = "glasses"
	TypeSurgery     AppointmentType = "surgery"
	TypeEmergency   AppointmentType = "emergency"
)

// AppointmentTypes lists every valid appointment type in display order.
var AppointmentTypes = []AppointmentType{
	TypeRoutine, TypeContacts, TypePostSurgery, TypeSpecial,
	TypeGlasses, TypeSurgery, TypeEmergency,
}

// ParseAppointmentType validates s against the closed set of types.
// An empty string yields the default (routine).
func ParseAppointmentType(s string) (AppointmentType, error) {
	if s == "" {
		return TypeRoutine, nil
	}
	for _, t := range AppointmentTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid appointment type %q", s)
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCanceled  AppointmentStatus = "canceled"
)

var AppointmentStatuses = []AppointmentStatus{StatusScheduled, StatusCompleted, StatusCanceled}

// ParseAppointmentStatus validates s. An empty string yields scheduled.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	if s == "" {
		return StatusScheduled, nil
	}
	for _, st := range AppointmentStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid appointment status %q", s)
}

// Doctor is a clinician account. Hash is never serialized.
type Doctor struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Hash      string `json:"-"`
}

// FullName returns "Firstname Lastname".
func (d Doctor) FullName() string {
	return d.Firstname + " " + d.Lastname
}

type Patient struct {
	ID        int64      `json:"id"`
	Firstname string     `json:"firstname"`
	Lastname  string     `json:"lastname"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Notes     string     `json:"notes"`
}

type Appointment struct {
	ID              int64             `json:"id"`
	PatientID       int64             `json:"patient_id"`
	DoctorID        *int64            `json:"doctor_id,omitempty"`
	AppointmentTime time.Time         `json:"appointment_time"`
	CreatedAt       time.Time         `json:"created_at"`
	Notes           string            `json:"notes"`
	Type            AppointmentType   `json:"type"`
	Status          AppointmentStatus `json:"status"`
}

// AppointmentView is an appointment joined with display names for listings.
type AppointmentView struct {
	Appointment
	DoctorName  string `json:"doctor_name"`
	PatientName string `json:"patient_name"`
}

// Sentence is one punctuation-delimited sentence with its interpolated
// start offset in seconds from the beginning of the recording.
type Sentence struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// Transcription is the live transcript and summary for an appointment.
type Transcription struct {
	ID            int64      `json:"id"`
	AppointmentID int64      `json:"appointment_id"`
	AudioPath     string     `json:"audio_path"`
	Transcript    []Sentence `json:"transcript"`
	Summary       string     `json:"summary"`
	CreatedAt     time.Time  `json:"created_at"`
}

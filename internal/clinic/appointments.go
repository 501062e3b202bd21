package clinic

import (
	"context"
	"fmt"
	"strings"

	"github.com/snarg/clinic-engine/internal/database"
	"github.com/snarg/clinic-engine/internal/model"
)

// validateAppointment normalizes a and checks that its patient and, when
// set, its doctor exist.
func (s *Service) validateAppointment(ctx context.Context, a *model.Appointment) error {
	if a.PatientID <= 0 {
		return invalid("patient_id is required")
	}
	if a.AppointmentTime.IsZero() {
		return invalid("appointment_time is required")
	}
	t, err := model.ParseAppointmentType(string(a.Type))
	if err != nil {
		return invalid("%v", err)
	}
	st, err := model.ParseAppointmentStatus(string(a.Status))
	if err != nil {
		return invalid("%v", err)
	}
	a.Type, a.Status = t, st
	a.Notes = strings.TrimSpace(a.Notes)

	if _, err := s.GetPatient(ctx, a.PatientID); err != nil {
		return err
	}
	if a.DoctorID != nil {
		if _, err := s.GetDoctor(ctx, *a.DoctorID); err != nil {
			return err
		}
	}
	return nil
}

// CreateAppointment schedules an appointment. Type defaults to routine and
// status to scheduled.
func (s *Service) CreateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error) {
	if err := s.validateAppointment(ctx, &a); err != nil {
		return nil, err
	}
	id, err := s.store.CreateAppointment(ctx, &a)
	if err != nil {
		return nil, storeErr(err, "create appointment")
	}
	return s.GetAppointment(ctx, id)
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("appointment %d", id))
	}
	return a, nil
}

func (s *Service) ListAppointments(ctx context.Context, f database.AppointmentFilter) ([]model.AppointmentView, error) {
	if f.Status != "" {
		if _, err := model.ParseAppointmentStatus(string(f.Status)); err != nil {
			return nil, invalid("%v", err)
		}
	}
	return s.store.ListAppointments(ctx, f)
}

// UpdateAppointment replaces every mutable field of an existing appointment.
func (s *Service) UpdateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error) {
	if _, err := s.GetAppointment(ctx, a.ID); err != nil {
		return nil, err
	}
	if err := s.validateAppointment(ctx, &a); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAppointment(ctx, &a); err != nil {
		return nil, storeErr(err, fmt.Sprintf("appointment %d", a.ID))
	}
	return s.GetAppointment(ctx, a.ID)
}

func (s *Service) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	st, err := model.ParseAppointmentStatus(status)
	if err != nil || status == "" {
		return invalid("status must be one of %v", model.AppointmentStatuses)
	}
	return storeErr(s.store.UpdateAppointmentStatus(ctx, id, st), fmt.Sprintf("appointment %d", id))
}

func (s *Service) UpdateAppointmentType(ctx context.Context, id int64, typ string) error {
	t, err := model.ParseAppointmentType(typ)
	if err != nil || typ == "" {
		return invalid("appointment_type must be one of %v", model.AppointmentTypes)
	}
	return storeErr(s.store.UpdateAppointmentType(ctx, id, t), fmt.Sprintf("appointment %d", id))
}

func (s *Service) UpdateAppointmentNotes(ctx context.Context, id int64, notes string) error {
	return storeErr(s.store.UpdateAppointmentNotes(ctx, id, strings.TrimSpace(notes)), fmt.Sprintf("appointment %d", id))
}

// DeleteAppointment removes the appointment, its transcriptions and their
// audio files.
func (s *Service) DeleteAppointment(ctx context.Context, id int64) error {
	paths, err := s.store.DeleteAppointment(ctx, id)
	if err != nil {
		return storeErr(err, fmt.Sprintf("appointment %d", id))
	}
	removed := s.removeAudio(ctx, paths)
	s.log.Info().Int64("appointment_id", id).Int("audio_removed", removed).Msg("appointment deleted")
	s.publish(deletedTopic(id), AppointmentDeletedEvent{AppointmentID: id, AudioRemoved: removed})
	return nil
}

// removeAudio deletes blobs best effort and returns how many succeeded.
func (s *Service) removeAudio(ctx context.Context, keys []string) int {
	removed := 0
	for _, key := range keys {
		if err := s.audio.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to delete audio")
			continue
		}
		removed++
	}
	return removed
}

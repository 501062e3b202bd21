package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/clinic-engine/internal/database"
	"github.com/snarg/clinic-engine/internal/model"
)

type AppointmentService interface {
	CreateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, a model.Appointment) (*model.Appointment, error)
	ListAppointments(ctx context.Context, f database.AppointmentFilter) ([]model.AppointmentView, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status string) error
	UpdateAppointmentType(ctx context.Context, id int64, typ string) error
	UpdateAppointmentNotes(ctx context.Context, id int64, notes string) error
	DeleteAppointment(ctx context.Context, id int64) error
}

type AppointmentsHandler struct {
	svc AppointmentService
}

func NewAppointmentsHandler(svc AppointmentService) *AppointmentsHandler {
	return &AppointmentsHandler{svc: svc}
}

func (h *AppointmentsHandler) Routes(r chi.Router) {
	r.Get("/appointment", h.List)
	r.Post("/appointment", h.Create)
	r.Post("/update-appointment", h.Update)
	r.Post("/delete-appointment", h.Delete)
	r.Post("/update-status", h.UpdateStatus)
	r.Post("/update-type", h.UpdateType)
	r.Post("/update-notes", h.UpdateNotes)
}

// List handles GET /appointment. Optional query filters: doctor_id,
// patient_id, status, from, to.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	var f database.AppointmentFilter
	q := r.URL.Query()
	if v, ok := QueryInt64(r, "doctor_id"); ok {
		f.DoctorID = &v
	} else if q.Get("doctor_id") != "" {
		WriteError(w, http.StatusBadRequest, "invalid doctor_id")
		return
	}
	if v, ok := QueryInt64(r, "patient_id"); ok {
		f.PatientID = &v
	} else if q.Get("patient_id") != "" {
		WriteError(w, http.StatusBadRequest, "invalid patient_id")
		return
	}
	if v, ok := QueryTime(r, "from"); ok {
		f.From = &v
	} else if q.Get("from") != "" {
		WriteError(w, http.StatusBadRequest, "invalid from: expected a date-time")
		return
	}
	if v, ok := QueryTime(r, "to"); ok {
		f.To = &v
	} else if q.Get("to") != "" {
		WriteError(w, http.StatusBadRequest, "invalid to: expected a date-time")
		return
	}
	f.Status = model.AppointmentStatus(q.Get("status"))

	list, err := h.svc.ListAppointments(r.Context(), f)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// Create handles POST /appointment (patient_id, doctor_id?, appointment_time,
// notes?, appointment_type?, status?).
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	a, err := appointmentFromForm(r)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	created, err := h.svc.CreateAppointment(r.Context(), a)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

// Update handles POST /update-appointment (appointment_id plus the create fields).
func (h *AppointmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	a, err := appointmentFromForm(r)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	a.ID = id
	updated, err := h.svc.UpdateAppointment(r.Context(), a)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (h *AppointmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAppointment(r.Context(), id); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, okResponse)
}

func (h *AppointmentsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.UpdateAppointmentStatus(r.Context(), id, formString(r, "status")); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, okResponse)
}

func (h *AppointmentsHandler) UpdateType(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.UpdateAppointmentType(r.Context(), id, formString(r, "appointment_type")); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, okResponse)
}

func (h *AppointmentsHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.UpdateAppointmentNotes(r.Context(), id, r.FormValue("notes")); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, okResponse)
}

func appointmentFromForm(r *http.Request) (model.Appointment, error) {
	patientID, err := formInt64(r, "patient_id")
	if err != nil {
		return model.Appointment{}, err
	}
	doctorID, err := formOptionalInt64(r, "doctor_id")
	if err != nil {
		return model.Appointment{}, err
	}
	when, err := formDateTime(r, "appointment_time")
	if err != nil {
		return model.Appointment{}, err
	}
	return model.Appointment{
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentTime: when,
		Notes:           r.FormValue("notes"),
		Type:            model.AppointmentType(formString(r, "appointment_type")),
		Status:          model.AppointmentStatus(formString(r, "status")),
	}, nil
}

// appointmentID parses the form and reads appointment_id, writing the error
// response itself on failure.
func appointmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if err := parseForm(r); err != nil {
		WriteServiceError(w, r, err)
		return 0, false
	}
	id, err := formInt64(r, "appointment_id")
	if err != nil {
		WriteServiceError(w, r, err)
		return 0, false
	}
	return id, true
}

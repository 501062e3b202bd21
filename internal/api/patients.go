package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/clinic-engine/internal/model"
)

type PatientService interface {
	CreatePatient(ctx context.Context, p model.Patient) (*model.Patient, error)
	ListPatients(ctx context.Context) ([]model.Patient, error)
	EditPatient(ctx context.Context, p model.Patient) (*model.Patient, error)
}

type PatientsHandler struct {
	svc PatientService
}

func NewPatientsHandler(svc PatientService) *PatientsHandler {
	return &PatientsHandler{svc: svc}
}

func (h *PatientsHandler) Routes(r chi.Router) {
	r.Get("/patients", h.List)
	r.Post("/patients", h.Create)
	r.Post("/edit-patient", h.Edit)
}

func (h *PatientsHandler) List(w http.ResponseWriter, r *http.Request) {
	patients, err := h.svc.ListPatients(r.Context())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, patients)
}

// Create handles POST /patients (firstname, lastname, birth_date?, notes?).
func (h *PatientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	p, err := patientFromForm(r)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	created, err := h.svc.CreatePatient(r.Context(), p)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

// Edit handles POST /edit-patient (patient_id plus the create fields).
func (h *PatientsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	id, err := formInt64(r, "patient_id")
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	p, err := patientFromForm(r)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	p.ID = id
	edited, err := h.svc.EditPatient(r.Context(), p)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, edited)
}

func patientFromForm(r *http.Request) (model.Patient, error) {
	birth, err := formOptionalDate(r, "birth_date")
	if err != nil {
		return model.Patient{}, err
	}
	return model.Patient{
		Firstname: formString(r, "firstname"),
		Lastname:  formString(r, "lastname"),
		BirthDate: birth,
		Notes:     r.FormValue("notes"),
	}, nil
}

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/clinic-engine/internal/clinic"
	"github.com/snarg/clinic-engine/internal/model"
)

// DoctorService is the directory surface the doctor endpoints need.
type DoctorService interface {
	CreateDoctor(ctx context.Context, in clinic.NewDoctor) (*model.Doctor, error)
	ListDoctors(ctx context.Context) ([]model.Doctor, error)
	EditDoctor(ctx context.Context, id int64, firstname, lastname, email string) (*model.Doctor, error)
	UpdateDoctorName(ctx context.Context, id int64, firstname, lastname string) (*model.Doctor, error)
	UpdateDoctorEmail(ctx context.Context, id int64, email string) (*model.Doctor, error)
	UpdateDoctorPassword(ctx context.Context, id int64, oldPassword, newPassword string) error
}

type DoctorsHandler struct {
	svc DoctorService
}

func NewDoctorsHandler(svc DoctorService) *DoctorsHandler {
	return &DoctorsHandler{svc: svc}
}

func (h *DoctorsHandler) Routes(r chi.Router) {
	r.Get("/doctors", h.List)
	r.Post("/doctors", h.Create)
	r.Post("/edit-doctor", h.Edit)
	r.Post("/update-doctor-name", h.UpdateName)
	r.Post("/update-doctor-email", h.UpdateEmail)
	r.Post("/update-doctor-password", h.UpdatePassword)
}

func (h *DoctorsHandler) List(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.svc.ListDoctors(r.Context())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, doctors)
}

// Create handles POST /doctors (firstname, lastname, email, password).
func (h *DoctorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	d, err := h.svc.CreateDoctor(r.Context(), clinic.NewDoctor{
		Firstname: formString(r, "firstname"),
		Lastname:  formString(r, "lastname"),
		Email:     formString(r, "email"),
		Password:  r.FormValue("password"),
	})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, d)
}

// Edit handles POST /edit-doctor (doctor_id, firstname, lastname, email).
func (h *DoctorsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := doctorID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.EditDoctor(r.Context(), id, formString(r, "firstname"), formString(r, "lastname"), formString(r, "email"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

func (h *DoctorsHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	id, ok := doctorID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.UpdateDoctorName(r.Context(), id, formString(r, "firstname"), formString(r, "lastname"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

func (h *DoctorsHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := doctorID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.UpdateDoctorEmail(r.Context(), id, formString(r, "email"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

// UpdatePassword handles POST /update-doctor-password
// (doctor_id, old_password, new_password).
func (h *DoctorsHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := doctorID(w, r)
	if !ok {
		return
	}
	if err := h.svc.UpdateDoctorPassword(r.Context(), id, r.FormValue("old_password"), r.FormValue("new_password")); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, okResponse)
}

// doctorID parses the form and reads doctor_id, writing the error response
// itself on failure.
func doctorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if err := parseForm(r); err != nil {
		WriteServiceError(w, r, err)
		return 0, false
	}
	id, err := formInt64(r, "doctor_id")
	if err != nil {
		WriteServiceError(w, r, err)
		return 0, false
	}
	return id, true
}

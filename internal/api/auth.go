package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/clinic-engine/internal/model"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*model.Doctor, error)
}

// AuthHandler verifies doctor credentials. It issues no token; the
// response is the doctor's identity record.
type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Routes(r chi.Router) {
	r.Post("/login", h.Login)
}

// Login handles POST /login (email, password).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	d, err := h.auth.Login(r.Context(), formString(r, "email"), r.FormValue("password"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

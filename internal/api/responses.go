package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/clinic-engine/internal/clinic"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteErrorDetail writes a JSON error response with detail.
func WriteErrorDetail(w http.ResponseWriter, status int, msg, detail string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Detail: detail})
}

// StatusResponse acknowledges a mutation that returns no entity.
type StatusResponse struct {
	Status string `json:"status"`
}

var okResponse = StatusResponse{Status: "ok"}

// WriteServiceError maps clinic errors to HTTP status codes. Unexpected
// errors are logged and reported as 500 without detail.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, clinic.ErrInvalidInput):
		WriteErrorDetail(w, http.StatusBadRequest, "invalid input", err.Error())
	case errors.Is(err, clinic.ErrNotFound):
		WriteErrorDetail(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, clinic.ErrConflict):
		WriteErrorDetail(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, clinic.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, clinic.ErrUpstream):
		hlog.FromRequest(r).Error().Err(err).Msg("upstream service failed")
		WriteError(w, http.StatusBadGateway, "transcription service unavailable")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// PathInt64 extracts an int64 from a chi URL parameter.
func PathInt64(r *http.Request, name string) (int64, error) {
	v := chi.URLParam(r, name)
	if v == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}
	return strconv.ParseInt(v, 10, 64)
}

// QueryInt64 extracts an int64 query parameter. Returns 0, false if missing or invalid.
func QueryInt64(r *http.Request, name string) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// QueryTime extracts a date-time query parameter in any accepted layout.
func QueryTime(r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, false
	}
	t, err := ParseDateTime(v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/clinic-engine/internal/clinic"
	"github.com/snarg/clinic-engine/internal/config"
	"github.com/snarg/clinic-engine/internal/database"
	"github.com/snarg/clinic-engine/internal/model"
)

var errNotMocked = errors.New("not mocked")

// mockService implements Service. Unset funcs return errNotMocked so a test
// fails loudly on an unexpected call.
type mockService struct {
	createDoctor         func(clinic.NewDoctor) (*model.Doctor, error)
	listDoctors          func() ([]model.Doctor, error)
	editDoctor           func(id int64, first, last, email string) (*model.Doctor, error)
	updateDoctorName     func(id int64, first, last string) (*model.Doctor, error)
	updateDoctorEmail    func(id int64, email string) (*model.Doctor, error)
	updateDoctorPassword func(id int64, oldPw, newPw string) error
	login                func(email, password string) (*model.Doctor, error)

	createPatient func(model.Patient) (*model.Patient, error)
	listPatients  func() ([]model.Patient, error)
	editPatient   func(model.Patient) (*model.Patient, error)

	createAppointment func(model.Appointment) (*model.Appointment, error)
	updateAppointment func(model.Appointment) (*model.Appointment, error)
	listAppointments  func(database.AppointmentFilter) ([]model.AppointmentView, error)
	updateStatus      func(id int64, status string) error
	updateType        func(id int64, typ string) error
	updateNotes       func(id int64, notes string) error
	deleteAppointment func(id int64) error

	replaceTranscription func(clinic.UploadRequest) (*clinic.UploadResult, error)
	getTranscription     func(id int64) (*model.Transcription, error)
	openAudio            func(id int64) (io.ReadCloser, string, error)
}

func (m *mockService) CreateDoctor(_ context.Context, in clinic.NewDoctor) (*model.Doctor, error) {
	if m.createDoctor == nil {
		return nil, errNotMocked
	}
	return m.createDoctor(in)
}

func (m *mockService) ListDoctors(context.Context) ([]model.Doctor, error) {
	if m.listDoctors == nil {
		return nil, errNotMocked
	}
	return m.listDoctors()
}

func (m *mockService) EditDoctor(_ context.Context, id int64, first, last, email string) (*model.Doctor, error) {
	if m.editDoctor == nil {
		return nil, errNotMocked
	}
	return m.editDoctor(id, first, last, email)
}

func (m *mockService) UpdateDoctorName(_ context.Context, id int64, first, last string) (*model.Doctor, error) {
	if m.updateDoctorName == nil {
		return nil, errNotMocked
	}
	return m.updateDoctorName(id, first, last)
}

func (m *mockService) UpdateDoctorEmail(_ context.Context, id int64, email string) (*model.Doctor, error) {
	if m.updateDoctorEmail == nil {
		return nil, errNotMocked
	}
	return m.updateDoctorEmail(id, email)
}

func (m *mockService) UpdateDoctorPassword(_ context.Context, id int64, oldPw, newPw string) error {
	if m.updateDoctorPassword == nil {
		return errNotMocked
	}
	return m.updateDoctorPassword(id, oldPw, newPw)
}

func (m *mockService) Login(_ context.Context, email, password string) (*model.Doctor, error) {
	if m.login == nil {
		return nil, errNotMocked
	}
	return m.login(email, password)
}

func (m *mockService) CreatePatient(_ context.Context, p model.Patient) (*model.Patient, error) {
	if m.createPatient == nil {
		return nil, errNotMocked
	}
	return m.createPatient(p)
}

func (m *mockService) ListPatients(context.Context) ([]model.Patient, error) {
	if m.listPatients == nil {
		return nil, errNotMocked
	}
	return m.listPatients()
}

func (m *mockService) EditPatient(_ context.Context, p model.Patient) (*model.Patient, error) {
	if m.editPatient == nil {
		return nil, errNotMocked
	}
	return m.editPatient(p)
}

func (m *mockService) CreateAppointment(_ context.Context, a model.Appointment) (*model.Appointment, error) {
	if m.createAppointment == nil {
		return nil, errNotMocked
	}
	return m.createAppointment(a)
}

func (m *mockService) UpdateAppointment(_ context.Context, a model.Appointment) (*model.Appointment, error) {
	if m.updateAppointment == nil {
		return nil, errNotMocked
	}
	return m.updateAppointment(a)
}

func (m *mockService) ListAppointments(_ context.Context, f database.AppointmentFilter) ([]model.AppointmentView, error) {
	if m.listAppointments == nil {
		return nil, errNotMocked
	}
	return m.listAppointments(f)
}

func (m *mockService) UpdateAppointmentStatus(_ context.Context, id int64, status string) error {
	if m.updateStatus == nil {
		return errNotMocked
	}
	return m.updateStatus(id, status)
}

func (m *mockService) UpdateAppointmentType(_ context.Context, id int64, typ string) error {
	if m.updateType == nil {
		return errNotMocked
	}
	return m.updateType(id, typ)
}

func (m *mockService) UpdateAppointmentNotes(_ context.Context, id int64, notes string) error {
	if m.updateNotes == nil {
		return errNotMocked
	}
	return m.updateNotes(id, notes)
}

func (m *mockService) DeleteAppointment(_ context.Context, id int64) error {
	if m.deleteAppointment == nil {
		return errNotMocked
	}
	return m.deleteAppointment(id)
}

func (m *mockService) ReplaceTranscription(_ context.Context, req clinic.UploadRequest) (*clinic.UploadResult, error) {
	if m.replaceTranscription == nil {
		return nil, errNotMocked
	}
	return m.replaceTranscription(req)
}

func (m *mockService) GetTranscription(_ context.Context, id int64) (*model.Transcription, error) {
	if m.getTranscription == nil {
		return nil, errNotMocked
	}
	return m.getTranscription(id)
}

func (m *mockService) OpenAudio(_ context.Context, id int64) (io.ReadCloser, string, error) {
	if m.openAudio == nil {
		return nil, "", errNotMocked
	}
	return m.openAudio(id)
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) error { return f.err }

type fakeConn struct{ connected bool }

func (f fakeConn) IsConnected() bool { return f.connected }

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:       ":0",
		MaxUploadMB:    1,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
}

// serve routes req through a full router backed by svc.
func serve(svc *mockService, req *http.Request) *httptest.ResponseRecorder {
	router := NewRouter(testConfig(), ServerOptions{
		Service:     svc,
		DB:          fakeHealth{},
		StorageType: "local",
		Version:     "test",
		StartTime:   time.Now(),
		Log:         zerolog.Nop(),
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func formRequestTo(path, body string) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

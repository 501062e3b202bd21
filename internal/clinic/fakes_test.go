package clinic

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/clinic-engine/internal/database"
	"github.com/snarg/clinic-engine/internal/model"
	"github.com/snarg/clinic-engine/internal/storage"
	"github.com/snarg/clinic-engine/internal/transcribe"
)

// memStore is an in-memory Store mirroring the database's semantics.
type memStore struct {
	mu             sync.Mutex
	nextID         int64
	doctors        map[int64]model.Doctor
	patients       map[int64]model.Patient
	appointments   map[int64]model.Appointment
	transcriptions map[int64]model.Transcription // by transcription id

	doctorInserts int
	replaceErr    error
}

func newMemStore() *memStore {
	return &memStore{
		doctors:        map[int64]model.Doctor{},
		patients:       map[int64]model.Patient{},
		appointments:   map[int64]model.Appointment{},
		transcriptions: map[int64]model.Transcription{},
	}
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) CreateDoctor(_ context.Context, d *model.Doctor) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.doctors {
		if o.Email == d.Email {
			return 0, database.ErrDuplicate
		}
	}
	m.doctorInserts++
	c := *d
	c.ID = m.id()
	m.doctors[c.ID] = c
	return c.ID, nil
}

func (m *memStore) GetDoctor(_ context.Context, id int64) (*model.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &d, nil
}

func (m *memStore) GetDoctorByEmail(_ context.Context, email string) (*model.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doctors {
		if d.Email == email {
			return &d, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) EmailInUse(_ context.Context, email string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.doctors {
		if d.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateDoctor(_ context.Context, d *model.Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.doctors[d.ID]
	if !ok {
		return database.ErrNotFound
	}
	cur.Firstname, cur.Lastname, cur.Email = d.Firstname, d.Lastname, d.Email
	m.doctors[d.ID] = cur
	return nil
}

func (m *memStore) UpdateDoctorPassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.doctors[id]
	if !ok {
		return database.ErrNotFound
	}
	cur.Hash = hash
	m.doctors[id] = cur
	return nil
}

func (m *memStore) ListDoctors(_ context.Context) ([]model.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Doctor{}
	for _, d := range m.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreatePatient(_ context.Context, p *model.Patient) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *p
	c.ID = m.id()
	m.patients[c.ID] = c
	return c.ID, nil
}

func (m *memStore) GetPatient(_ context.Context, id int64) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) UpdatePatient(_ context.Context, p *model.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[p.ID]; !ok {
		return database.ErrNotFound
	}
	m.patients[p.ID] = *p
	return nil
}

func (m *memStore) ListPatients(_ context.Context) ([]model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Patient{}
	for _, p := range m.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateAppointment(_ context.Context, a *model.Appointment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *a
	c.ID = m.id()
	c.CreatedAt = time.Now()
	m.appointments[c.ID] = c
	return c.ID, nil
}

func (m *memStore) GetAppointment(_ context.Context, id int64) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &a, nil
}

func (m *memStore) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appointments[a.ID]
	if !ok {
		return database.ErrNotFound
	}
	c := *a
	c.CreatedAt = cur.CreatedAt
	m.appointments[a.ID] = c
	return nil
}

func (m *memStore) mutateAppointment(id int64, fn func(*model.Appointment)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return database.ErrNotFound
	}
	fn(&a)
	m.appointments[id] = a
	return nil
}

func (m *memStore) UpdateAppointmentStatus(_ context.Context, id int64, st model.AppointmentStatus) error {
	return m.mutateAppointment(id, func(a *model.Appointment) { a.Status = st })
}

func (m *memStore) UpdateAppointmentType(_ context.Context, id int64, t model.AppointmentType) error {
	return m.mutateAppointment(id, func(a *model.Appointment) { a.Type = t })
}

func (m *memStore) UpdateAppointmentNotes(_ context.Context, id int64, notes string) error {
	return m.mutateAppointment(id, func(a *model.Appointment) { a.Notes = notes })
}

func (m *memStore) ListAppointments(_ context.Context, f database.AppointmentFilter) ([]model.AppointmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.AppointmentView{}
	for _, a := range m.appointments {
		if f.DoctorID != nil && (a.DoctorID == nil || *a.DoctorID != *f.DoctorID) {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		v := model.AppointmentView{Appointment: a}
		if p, ok := m.patients[a.PatientID]; ok {
			v.PatientName = p.Firstname + " " + p.Lastname
		}
		if a.DoctorID != nil {
			if d, ok := m.doctors[*a.DoctorID]; ok {
				v.DoctorName = d.FullName()
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentTime.Before(out[j].AppointmentTime) })
	return out, nil
}

func (m *memStore) deleteTranscriptionsLocked(appointmentID int64) []string {
	var paths []string
	for id, t := range m.transcriptions {
		if t.AppointmentID == appointmentID {
			if t.AudioPath != "" {
				paths = append(paths, t.AudioPath)
			}
			delete(m.transcriptions, id)
		}
	}
	return paths
}

func (m *memStore) DeleteAppointment(_ context.Context, id int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[id]; !ok {
		return nil, database.ErrNotFound
	}
	paths := m.deleteTranscriptionsLocked(id)
	delete(m.appointments, id)
	return paths, nil
}

func (m *memStore) DeleteTranscriptions(_ context.Context, appointmentID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteTranscriptionsLocked(appointmentID), nil
}

func (m *memStore) ReplaceTranscription(_ context.Context, t *model.Transcription, typ model.AppointmentType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return 0, m.replaceErr
	}
	a, ok := m.appointments[t.AppointmentID]
	if !ok {
		return 0, database.ErrNotFound
	}
	m.deleteTranscriptionsLocked(t.AppointmentID)
	a.Type = typ
	m.appointments[a.ID] = a

	// Stored through the real codec so reads exercise decoding.
	enc, err := database.EncodeTranscript(t.Transcript)
	if err != nil {
		return 0, err
	}
	dec, err := database.DecodeTranscript(enc)
	if err != nil {
		return 0, err
	}
	c := *t
	c.ID = m.id()
	c.Transcript = dec
	c.CreatedAt = time.Now()
	m.transcriptions[c.ID] = c
	t.ID, t.CreatedAt = c.ID, c.CreatedAt
	return c.ID, nil
}

func (m *memStore) GetTranscription(_ context.Context, appointmentID int64) (*model.Transcription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transcriptions {
		if t.AppointmentID == appointmentID {
			return &t, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) transcriptionCount(appointmentID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.transcriptions {
		if t.AppointmentID == appointmentID {
			n++
		}
	}
	return n
}

// memAudio is an in-memory AudioStore.
type memAudio struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemAudio() *memAudio { return &memAudio{blobs: map[string][]byte{}} }

func (a *memAudio) Save(_ context.Context, key string, data []byte, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (a *memAudio) Open(_ context.Context, key string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (a *memAudio) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.blobs, key)
	return nil
}

func (a *memAudio) keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.blobs))
	for k := range a.blobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type fakeSTT struct {
	segments []transcribe.Segment
	err      error
	calls    int
}

func (f *fakeSTT) Transcribe(_ context.Context, _ string, _ []byte) (*transcribe.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &transcribe.Response{Segments: f.segments}, nil
}

type summarizeCall struct {
	transcript string
	typ        model.AppointmentType
	bullets    []string
}

type fakeSummarizer struct {
	reply string
	err   error
	calls []summarizeCall
}

func (f *fakeSummarizer) Summarize(_ context.Context, transcript string, t model.AppointmentType, bullets []string) (string, error) {
	f.calls = append(f.calls, summarizeCall{transcript, t, bullets})
	return f.reply, f.err
}

type fakeEvents struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (f *fakeEvents) PublishJSON(topic string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return f.err
}

type harness struct {
	svc    *Service
	store  *memStore
	audio  *memAudio
	stt    *fakeSTT
	llm    *fakeSummarizer
	events *fakeEvents
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  newMemStore(),
		audio:  newMemAudio(),
		stt:    &fakeSTT{},
		llm:    &fakeSummarizer{reply: "summary"},
		events: &fakeEvents{},
	}
	h.svc = New(Deps{
		Store:       h.store,
		Audio:       h.audio,
		Transcriber: h.stt,
		Summarizer:  h.llm,
		Events:      h.events,
		Log:         zerolog.Nop(),
	})
	return h
}

// seedAppointment creates a patient and an appointment and returns the
// appointment id.
func (h *harness) seedAppointment(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	p, err := h.svc.CreatePatient(ctx, model.Patient{Firstname: "Ada", Lastname: "Lovelace"})
	if err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	a, err := h.svc.CreateAppointment(ctx, model.Appointment{
		PatientID:       p.ID,
		AppointmentTime: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	return a.ID
}

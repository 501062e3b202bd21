package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/snarg/clinic-engine/internal/auth"
	"github.com/snarg/clinic-engine/internal/database"
	"github.com/snarg/clinic-engine/internal/metrics"
	"github.com/snarg/clinic-engine/internal/model"
)

// NewDoctor is the input for CreateDoctor.
type NewDoctor struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalid("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return "", invalid("malformed email %q", email)
	}
	return email, nil
}

func requireName(firstname, lastname string) (string, string, error) {
	firstname, lastname = strings.TrimSpace(firstname), strings.TrimSpace(lastname)
	if firstname == "" || lastname == "" {
		return "", "", invalid("firstname and lastname are required")
	}
	return firstname, lastname, nil
}

// ensureEmailFree returns ErrConflict when another doctor holds email.
func (s *Service) ensureEmailFree(ctx context.Context, email string, excludeID int64) error {
	inUse, err := s.store.EmailInUse(ctx, email, excludeID)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if inUse {
		return fmt.Errorf("email %s already registered: %w", email, ErrConflict)
	}
	return nil
}

// CreateDoctor registers a doctor. The email must not be in use; the
// password is stored only as a bcrypt hash.
func (s *Service) CreateDoctor(ctx context.Context, in NewDoctor) (*model.Doctor, error) {
	first, last, err := requireName(in.Firstname, in.Lastname)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, invalid("%v", err)
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	d := &model.Doctor{Firstname: first, Lastname: last, Email: email, Hash: hash}
	d.ID, err = s.store.CreateDoctor(ctx, d)
	if err != nil {
		return nil, storeErr(err, "create doctor")
	}
	s.log.Info().Int64("doctor_id", d.ID).Msg("doctor created")
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*model.Doctor, error) {
	d, err := s.store.GetDoctor(ctx, id)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("doctor %d", id))
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	return s.store.ListDoctors(ctx)
}

// EditDoctor replaces a doctor's names and email.
func (s *Service) EditDoctor(ctx context.Context, id int64, firstname, lastname, email string) (*model.Doctor, error) {
	first, last, err := requireName(firstname, lastname)
	if err != nil {
		return nil, err
	}
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, id); err != nil {
		return nil, err
	}
	d.Firstname, d.Lastname, d.Email = first, last, email
	if err := s.store.UpdateDoctor(ctx, d); err != nil {
		return nil, storeErr(err, fmt.Sprintf("doctor %d", id))
	}
	return d, nil
}

func (s *Service) UpdateDoctorName(ctx context.Context, id int64, firstname, lastname string) (*model.Doctor, error) {
	first, last, err := requireName(firstname, lastname)
	if err != nil {
		return nil, err
	}
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Firstname, d.Lastname = first, last
	if err := s.store.UpdateDoctor(ctx, d); err != nil {
		return nil, storeErr(err, fmt.Sprintf("doctor %d", id))
	}
	return d, nil
}

func (s *Service) UpdateDoctorEmail(ctx context.Context, id int64, email string) (*model.Doctor, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, id); err != nil {
		return nil, err
	}
	d.Email = email
	if err := s.store.UpdateDoctor(ctx, d); err != nil {
		return nil, storeErr(err, fmt.Sprintf("doctor %d", id))
	}
	return d, nil
}

// UpdateDoctorPassword replaces the password after verifying the old one.
func (s *Service) UpdateDoctorPassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return invalid("new %v", err)
	}
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(d.Hash, oldPassword) {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateDoctorPassword(ctx, id, hash); err != nil {
		return storeErr(err, fmt.Sprintf("doctor %d", id))
	}
	s.log.Info().Int64("doctor_id", id).Msg("doctor password changed")
	return nil
}

// Login verifies credentials. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Doctor, error) {
	d, err := s.login(ctx, email, password)
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
		if !errors.Is(err, ErrInvalidCredentials) {
			outcome = "error"
		}
	}
	metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	return d, err
}

func (s *Service) login(ctx context.Context, email, password string) (*model.Doctor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	d, err := s.store.GetDoctorByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup doctor: %w", err)
	}
	if !auth.CheckPassword(d.Hash, password) {
		return nil, ErrInvalidCredentials
	}
	return d, nil
}

package clinic

import (
	"context"
	"fmt"
	"strings"

	"github.com/snarg/clinic-engine/internal/model"
)

func (s *Service) CreatePatient(ctx context.Context, p model.Patient) (*model.Patient, error) {
	var err error
	if p.Firstname, p.Lastname, err = requireName(p.Firstname, p.Lastname); err != nil {
		return nil, err
	}
	p.Notes = strings.TrimSpace(p.Notes)
	p.ID, err = s.store.CreatePatient(ctx, &p)
	if err != nil {
		return nil, storeErr(err, "create patient")
	}
	return &p, nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	p, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("patient %d", id))
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]model.Patient, error) {
	return s.store.ListPatients(ctx)
}

// EditPatient replaces every field of an existing patient.
func (s *Service) EditPatient(ctx context.Context, p model.Patient) (*model.Patient, error) {
	var err error
	if p.Firstname, p.Lastname, err = requireName(p.Firstname, p.Lastname); err != nil {
		return nil, err
	}
	if _, err := s.GetPatient(ctx, p.ID); err != nil {
		return nil, err
	}
	p.Notes = strings.TrimSpace(p.Notes)
	if err := s.store.UpdatePatient(ctx, &p); err != nil {
		return nil, storeErr(err, fmt.Sprintf("patient %d", p.ID))
	}
	return &p, nil
}

package database

import (
	"context"

	"github.com/snarg/clinic-engine/internal/model"
)

const patientColumns = `id, firstname, lastname, birth_date, notes`

func scanPatient(row interface{ Scan(...any) error }) (*model.Patient, error) {
	var p model.Patient
	if err := row.Scan(&p.ID, &p.Firstname, &p.Lastname, &p.BirthDate, &p.Notes); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (db *DB) CreatePatient(ctx context.Context, p *model.Patient) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO patients (firstname, lastname, birth_date, notes)
		VALUES ($1, $2, $3::date, $4)
		RETURNING id
	`, p.Firstname, p.Lastname, pqDate(p.BirthDate), p.Notes).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (db *DB) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	return scanPatient(db.Pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))
}

func (db *DB) UpdatePatient(ctx context.Context, p *model.Patient) error {
	return expectOne(db.Pool.Exec(ctx, `
		UPDATE patients SET firstname = $2, lastname = $3, birth_date = $4::date, notes = $5
		WHERE id = $1
	`, p.ID, p.Firstname, p.Lastname, pqDate(p.BirthDate), p.Notes))
}

func (db *DB) ListPatients(ctx context.Context) ([]model.Patient, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+patientColumns+` FROM patients ORDER BY lastname, firstname, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := []model.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, *p)
	}
	return patients, rows.Err()
}

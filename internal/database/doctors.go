package database

import (
	"context"

	"github.com/snarg/clinic-engine/internal/model"
)

const doctorColumns = `id, firstname, lastname, email, hash`

func scanDoctor(row interface{ Scan(...any) error }) (*model.Doctor, error) {
	var d model.Doctor
	if err := row.Scan(&d.ID, &d.Firstname, &d.Lastname, &d.Email, &d.Hash); err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

// CreateDoctor inserts a doctor and returns the new id. Hash must already be
// a password hash.
func (db *DB) CreateDoctor(ctx context.Context, d *model.Doctor) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO doctors (firstname, lastname, email, hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, d.Firstname, d.Lastname, d.Email, d.Hash).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (db *DB) GetDoctor(ctx context.Context, id int64) (*model.Doctor, error) {
	return scanDoctor(db.Pool.QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id))
}

func (db *DB) GetDoctorByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	return scanDoctor(db.Pool.QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM doctors WHERE email = $1`, email))
}

// EmailInUse reports whether another doctor (id != excludeID) holds email.
// Pass excludeID 0 when creating.
func (db *DB) EmailInUse(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE email = $1 AND id <> $2)`,
		email, excludeID,
	).Scan(&exists)
	return exists, err
}

// UpdateDoctor overwrites name and email. The hash is left untouched.
func (db *DB) UpdateDoctor(ctx context.Context, d *model.Doctor) error {
	return expectOne(db.Pool.Exec(ctx, `
		UPDATE doctors SET firstname = $2, lastname = $3, email = $4
		WHERE id = $1
	`, d.ID, d.Firstname, d.Lastname, d.Email))
}

func (db *DB) UpdateDoctorPassword(ctx context.Context, id int64, hash string) error {
	return expectOne(db.Pool.Exec(ctx,
		`UPDATE doctors SET hash = $2 WHERE id = $1`, id, hash))
}

func (db *DB) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+doctorColumns+` FROM doctors ORDER BY lastname, firstname, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doctors := []model.Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, *d)
	}
	return doctors, rows.Err()
}

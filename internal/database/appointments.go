package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/snarg/clinic-engine/internal/model"
)

// AppointmentFilter narrows ListAppointments. Zero values match everything.
type AppointmentFilter struct {
	DoctorID  *int64
	PatientID *int64
	Status    model.AppointmentStatus
	From      *time.Time
	To        *time.Time
}

const appointmentColumns = `a.id, a.patient_id, a.doctor_id, a.appointment_time, a.created_at, a.notes, a.type, a.status`

func scanAppointment(row interface{ Scan(...any) error }, extra ...any) (*model.Appointment, error) {
	var a model.Appointment
	var typ, status string
	dest := append([]any{&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentTime, &a.CreatedAt, &a.Notes, &typ, &status}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, mapErr(err)
	}
	a.Type = model.AppointmentType(typ)
	a.Status = model.AppointmentStatus(status)
	return &a, nil
}

func (db *DB) CreateAppointment(ctx context.Context, a *model.Appointment) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_time, notes, type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a.PatientID, pqInt64Ptr(a.DoctorID), a.AppointmentTime, a.Notes, string(a.Type), string(a.Status)).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (db *DB) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	return scanAppointment(db.Pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments a WHERE a.id = $1`, id))
}

// UpdateAppointment overwrites every mutable field. created_at is preserved.
func (db *DB) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	return expectOne(db.Pool.Exec(ctx, `
		UPDATE appointments
		SET patient_id = $2, doctor_id = $3, appointment_time = $4, notes = $5, type = $6, status = $7
		WHERE id = $1
	`, a.ID, a.PatientID, pqInt64Ptr(a.DoctorID), a.AppointmentTime, a.Notes, string(a.Type), string(a.Status)))
}

func (db *DB) UpdateAppointmentStatus(ctx context.Context, id int64, status model.AppointmentStatus) error {
	return expectOne(db.Pool.Exec(ctx,
		`UPDATE appointments SET status = $2 WHERE id = $1`, id, string(status)))
}

func (db *DB) UpdateAppointmentType(ctx context.Context, id int64, t model.AppointmentType) error {
	return expectOne(db.Pool.Exec(ctx,
		`UPDATE appointments SET type = $2 WHERE id = $1`, id, string(t)))
}

func (db *DB) UpdateAppointmentNotes(ctx context.Context, id int64, notes string) error {
	return expectOne(db.Pool.Exec(ctx,
		`UPDATE appointments SET notes = $2 WHERE id = $1`, id, notes))
}

// ListAppointments returns appointments joined with the patient's and the
// doctor's display names, ordered by appointment time.
func (db *DB) ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.AppointmentView, error) {
	qb := newQueryBuilder()
	if f.DoctorID != nil {
		qb.Add("a.doctor_id = %s", *f.DoctorID)
	}
	if f.PatientID != nil {
		qb.Add("a.patient_id = %s", *f.PatientID)
	}
	if f.Status != "" {
		qb.Add("a.status = %s", string(f.Status))
	}
	if f.From != nil {
		qb.Add("a.appointment_time >= %s", pqTime(f.From))
	}
	if f.To != nil {
		qb.Add("a.appointment_time < %s", pqTime(f.To))
	}

	query := fmt.Sprintf(`
		SELECT %s,
			COALESCE(d.firstname || ' ' || d.lastname, ''),
			p.firstname || ' ' || p.lastname
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		LEFT JOIN doctors d ON d.id = a.doctor_id
		%s
		ORDER BY a.appointment_time, a.id
	`, appointmentColumns, qb.WhereClause())

	rows, err := db.Pool.Query(ctx, query, qb.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []model.AppointmentView{}
	for rows.Next() {
		var v model.AppointmentView
		a, err := scanAppointment(rows, &v.DoctorName, &v.PatientName)
		if err != nil {
			return nil, err
		}
		v.Appointment = *a
		views = append(views, v)
	}
	return views, rows.Err()
}

// DeleteAppointment removes an appointment and its transcriptions in one
// transaction. It returns the audio paths the transcriptions referenced so
// the caller can remove the blobs after commit.
func (db *DB) DeleteAppointment(ctx context.Context, id int64) ([]string, error) {
	var paths []string
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`DELETE FROM transcriptions WHERE appointment_id = $1 RETURNING audio_path`, id)
		if err != nil {
			return err
		}
		paths, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		return expectOne(tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id))
	})
	if err != nil {
		return nil, err
	}
	return nonEmpty(paths), nil
}

func nonEmpty(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

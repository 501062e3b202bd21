package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/snarg/clinic-engine/internal/model"
)

// ReplaceTranscription atomically supersedes every transcription of the
// appointment with t and records the appointment type the summary was written
// for. On success exactly one row exists for the appointment.
func (db *DB) ReplaceTranscription(ctx context.Context, t *model.Transcription, typ model.AppointmentType) (int64, error) {
	encoded, err := EncodeTranscript(t.Transcript)
	if err != nil {
		return 0, err
	}

	var id int64
	err = pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if err := expectOne(tx.Exec(ctx,
			`UPDATE appointments SET type = $2 WHERE id = $1`, t.AppointmentID, string(typ))); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM transcriptions WHERE appointment_id = $1`, t.AppointmentID); err != nil {
			return err
		}
		// The appointment row lock above serializes replaces; the upsert
		// covers rows written outside this path.
		return tx.QueryRow(ctx, `
			INSERT INTO transcriptions (appointment_id, audio_path, transcript, summary)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (appointment_id) DO UPDATE
			SET audio_path = EXCLUDED.audio_path,
				transcript = EXCLUDED.transcript,
				summary = EXCLUDED.summary,
				created_at = now()
			RETURNING id, created_at
		`, t.AppointmentID, t.AudioPath, encoded, t.Summary).Scan(&id, &t.CreatedAt)
	})
	if err != nil {
		return 0, mapErr(err)
	}
	t.ID = id
	return id, nil
}

// GetTranscription returns the newest transcription for an appointment, with
// the stored transcript decoded into sentences.
func (db *DB) GetTranscription(ctx context.Context, appointmentID int64) (*model.Transcription, error) {
	var t model.Transcription
	var raw string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, appointment_id, audio_path, transcript, summary, created_at
		FROM transcriptions
		WHERE appointment_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, appointmentID).Scan(&t.ID, &t.AppointmentID, &t.AudioPath, &raw, &t.Summary, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}

	t.Transcript, err = DecodeTranscript(raw)
	if err != nil {
		return nil, fmt.Errorf("transcription %d: %w", t.ID, err)
	}
	return &t, nil
}

// DeleteTranscriptions removes every transcription of an appointment and
// returns the non-empty audio paths they referenced.
func (db *DB) DeleteTranscriptions(ctx context.Context, appointmentID int64) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`DELETE FROM transcriptions WHERE appointment_id = $1 RETURNING audio_path`, appointmentID)
	if err != nil {
		return nil, err
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return nonEmpty(paths), nil
}

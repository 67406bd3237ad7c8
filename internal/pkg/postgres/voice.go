package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/jackc/pgx/v5"
)

const voiceColumns = `id, report_id, field_name, file_name, file_path, file_size, duration_seconds, status,
	transcription_text, error, uploaded, transcribed`

// InsertVoiceArtifact inserts voice note record
func (db *DB) InsertVoiceArtifact(ctx context.Context, va *persistence.VoiceArtifact) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO voice_artifacts(id, report_id, field_name, file_name, file_path,
		file_size, duration_seconds, status, uploaded) 
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`, va.ID, va.ReportID, va.FieldName, va.FileName, va.FilePath,
		va.FileSize, va.DurationSeconds, va.Status.String(), va.Uploaded)
	if err != nil {
		return fmt.Errorf("can't insert voice artifact: %w", err)
	}
	return nil
}

// LoadVoiceArtifact loads voice note by ID, returns nil if none
func (db *DB) LoadVoiceArtifact(ctx context.Context, id string) (*persistence.VoiceArtifact, error) {
	res, err := scanVoice(db.pool.QueryRow(ctx, `SELECT `+voiceColumns+` FROM voice_artifacts WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load voice artifact: %w", err)
	}
	return res, nil
}

// LoadVoiceArtifacts loads voice notes of a report
func (db *DB) LoadVoiceArtifacts(ctx context.Context, reportID int64) ([]*persistence.VoiceArtifact, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+voiceColumns+` FROM voice_artifacts WHERE report_id = $1 
		ORDER BY uploaded, id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("can't load voice artifacts: %w", err)
	}
	defer rows.Close()
	res := []*persistence.VoiceArtifact{}
	for rows.Next() {
		va, err := scanVoice(rows)
		if err != nil {
			return nil, fmt.Errorf("can't read voice artifact: %w", err)
		}
		res = append(res, va)
	}
	return res, rows.Err()
}

// UpdateVoiceArtifact writes transcription state
func (db *DB) UpdateVoiceArtifact(ctx context.Context, va *persistence.VoiceArtifact) error {
	res, err := db.pool.Exec(ctx, `UPDATE voice_artifacts SET 
	status = $2,
	transcription_text = $3,
	error = $4,
	transcribed = $5
	WHERE id = $1`, va.ID, va.Status.String(), va.Text, va.Error, va.Transcribed)
	if err != nil {
		return fmt.Errorf("can't update voice artifact: %w", err)
	}
	if res.RowsAffected() != 1 {
		return fmt.Errorf("can't update voice artifact, no records found")
	}
	return nil
}

func scanVoice(row pgx.Row) (*persistence.VoiceArtifact, error) {
	var res persistence.VoiceArtifact
	var st string
	if err := row.Scan(&res.ID, &res.ReportID, &res.FieldName, &res.FileName, &res.FilePath, &res.FileSize,
		&res.DurationSeconds, &st, &res.Text, &res.Error, &res.Uploaded, &res.Transcribed); err != nil {
		return nil, err
	}
	res.Status = status.TranscriptionFrom(st)
	return &res, nil
}

package persistence

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/airenas/wardrep/internal/pkg/status"
)

type (

	//Report table
	Report struct {
		ID            int64
		WardID        int64
		UserID        int64
		Period        string
		Status        status.Report
		SubmissionKey sql.NullString
		DeclineReason sql.NullString
		ReviewedBy    sql.NullInt64
		ReviewedAt    sql.NullTime
		Fields        Fields
		Version       int
		Created       time.Time
		Updated       time.Time
	}

	//VoiceArtifact table
	VoiceArtifact struct {
		ID              string
		ReportID        int64
		FieldName       string
		FileName        string
		FilePath        string
		FileSize        int64
		DurationSeconds sql.NullInt32
		Status          status.Transcription
		Text            sql.NullString
		Error           sql.NullString
		Uploaded        time.Time
		Transcribed     sql.NullTime
	}

	//Form definitions table
	Form struct {
		ID          int64
		Name        string
		Description sql.NullString
		Version     int
		Status      status.Form
		Definition  json.RawMessage
		CreatedBy   int64
		Created     time.Time
		Updated     time.Time
		Deployed    sql.NullTime
	}
)
